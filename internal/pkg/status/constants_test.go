package status

import (
	"testing"
)

func TestStatus_String(t *testing.T) {
	tests := []struct {
		name string
		st   Status
		want string
	}{
		{st: Queued, want: "QUEUED"},
		{st: Converting, want: "CONVERTING"},
		{st: Ready, want: "READY_TO_TRANSCRIBE"},
		{st: Transcribing, want: "TRANSCRIBING"},
		{st: Completed, want: "COMPLETED"},
		{st: Error, want: "ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.st.String(); got != tt.want {
				t.Errorf("Status.String() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFrom(t *testing.T) {
	tests := []struct {
		name string
		args string
		want Status
	}{
		{args: "QUEUED", want: Queued},
		{args: "COMPLETED", want: Completed},
		{args: "ERROR", want: Error},
		{args: "olia", want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := From(tt.args); got != tt.want {
				t.Errorf("From() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestStatus_IsActive(t *testing.T) {
	tests := []struct {
		st   Status
		want bool
	}{
		{st: Queued, want: false},
		{st: Converting, want: true},
		{st: Ready, want: true},
		{st: Transcribing, want: true},
		{st: Completed, want: false},
		{st: Error, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.st.String(), func(t *testing.T) {
			if got := tt.st.IsActive(); got != tt.want {
				t.Errorf("Status.IsActive() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestStatus_IsTerminal(t *testing.T) {
	tests := []struct {
		st   Status
		want bool
	}{
		{st: Queued, want: false},
		{st: Converting, want: false},
		{st: Transcribing, want: false},
		{st: Completed, want: true},
		{st: Error, want: true},
	}
	for _, tt := range tests {
		t.Run(tt.st.String(), func(t *testing.T) {
			if got := tt.st.IsTerminal(); got != tt.want {
				t.Errorf("Status.IsTerminal() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestWorkflow_String(t *testing.T) {
	tests := []struct {
		wf   Workflow
		want string
	}{
		{wf: Pending, want: "PENDING"},
		{wf: Assigned, want: "ASSIGNED"},
		{wf: Finalized, want: "FINALIZED"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.wf.String(); got != tt.want {
				t.Errorf("Workflow.String() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestWorkflowFrom(t *testing.T) {
	tests := []struct {
		args string
		want Workflow
	}{
		{args: "PENDING", want: Pending},
		{args: "FINALIZED", want: Finalized},
		{args: "olia", want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.args, func(t *testing.T) {
			if got := WorkflowFrom(tt.args); got != tt.want {
				t.Errorf("WorkflowFrom() = %v, want %v", got, tt.want)
			}
		})
	}
}
