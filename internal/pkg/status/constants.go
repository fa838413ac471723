package status

// Status represents a batch item processing state
type Status int

const (
	// Queued - item submitted, waiting for a free slot
	Queued Status = iota + 1
	// Converting - proprietary format conversion in progress
	Converting
	// Ready - conversion done, about to start transcription
	Ready
	// Transcribing - remote transcription call outstanding
	Transcribing
	// Completed - final step, transcript available
	Completed
	// Error - final step, item failed
	Error
)

var (
	statusName = map[Status]string{Queued: "QUEUED", Converting: "CONVERTING",
		Ready: "READY_TO_TRANSCRIBE", Transcribing: "TRANSCRIBING",
		Completed: "COMPLETED", Error: "ERROR"}
	nameStatus = map[string]Status{"QUEUED": Queued, "CONVERTING": Converting,
		"READY_TO_TRANSCRIBE": Ready, "TRANSCRIBING": Transcribing,
		"COMPLETED": Completed, "ERROR": Error}
)

func (st Status) String() string {
	return statusName[st]
}

// From returns status obj from string
func From(st string) Status {
	return nameStatus[st]
}

// IsActive indicates the item occupies a concurrency slot.
// READY_TO_TRANSCRIBE keeps the slot - the item is between phases, not waiting
func (st Status) IsActive() bool {
	return st == Converting || st == Ready || st == Transcribing
}

// IsTerminal indicates the item will not be scheduled again
func (st Status) IsTerminal() bool {
	return st == Completed || st == Error
}

// Workflow represents a job record workflow state
type Workflow int

const (
	// Pending - job created, no typist assigned
	Pending Workflow = iota + 1
	// Assigned - typist linked to the job
	Assigned
	// Finalized - final text approved, job frozen
	Finalized
)

var (
	workflowName = map[Workflow]string{Pending: "PENDING", Assigned: "ASSIGNED",
		Finalized: "FINALIZED"}
	nameWorkflow = map[string]Workflow{"PENDING": Pending, "ASSIGNED": Assigned,
		"FINALIZED": Finalized}
)

func (wf Workflow) String() string {
	return workflowName[wf]
}

// WorkflowFrom returns workflow obj from string
func WorkflowFrom(wf string) Workflow {
	return nameWorkflow[wf]
}
