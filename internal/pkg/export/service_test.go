package export

import (
	"fmt"
	"testing"

	"github.com/dictamed/scriba/internal/pkg/messages"
	"github.com/dictamed/scriba/internal/pkg/persistence"
	"github.com/dictamed/scriba/internal/pkg/test"
	"github.com/dictamed/scriba/internal/pkg/test/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type testData struct {
	db     *mocks.DB
	merger *mocks.Merger
	filer  *mocks.Filer
	data   *ServiceData
	msg    *messages.JobMessage
}

func initTestData(t *testing.T) *testData {
	t.Helper()
	res := &testData{db: &mocks.DB{}, merger: &mocks.Merger{}, filer: &mocks.Filer{}}
	res.data = &ServiceData{DB: res.db, Merger: res.merger, Filer: res.filer, Template: "invoice"}
	res.msg = messages.NewJobMessage("1", "j1", "o1")
	res.db.On("LoadJob", mock.Anything, "j1").Return(&persistence.JobRecord{ID: "j1",
		JobNumber: "20260831-001", OwnerID: "o1", FinalText: "the patient is stable."}, nil)
	return res
}

func TestHandleExport(t *testing.T) {
	td := initTestData(t)
	td.db.On("LoadPendingInvoiceExtracts", mock.Anything, "o1").
		Return([]*persistence.InvoiceExtract{{ID: "e1", OwnerID: "o1",
			Fields: map[string]string{"amount": "100"}}}, nil)
	td.merger.On("MergeTemplate", mock.Anything, "invoice", "the patient is stable.",
		map[string]string{"amount": "100"}).Return("doc content", nil)
	td.filer.On("SaveFile", mock.Anything, "export/o1/20260831-001.rtf", mock.Anything, int64(11)).Return(nil)
	td.db.On("MarkInvoiceExported", mock.Anything, "e1").Return(nil)

	assert.Nil(t, handleExport(test.Ctx(t), td.msg, td.data))
	td.filer.AssertExpectations(t)
	td.db.AssertCalled(t, "MarkInvoiceExported", mock.Anything, "e1")
}

func TestHandleExport_SkipsWithoutSingleExtract(t *testing.T) {
	tests := []struct {
		name     string
		extracts []*persistence.InvoiceExtract
	}{
		{name: "none", extracts: []*persistence.InvoiceExtract{}},
		{name: "two", extracts: []*persistence.InvoiceExtract{{ID: "e1"}, {ID: "e2"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			td := initTestData(t)
			td.db.On("LoadPendingInvoiceExtracts", mock.Anything, "o1").Return(tt.extracts, nil)
			assert.Nil(t, handleExport(test.Ctx(t), td.msg, td.data))
			td.merger.AssertNotCalled(t, "MergeTemplate", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestHandleExport_SwallowsFailures(t *testing.T) {
	td := initTestData(t)
	td.db.On("LoadPendingInvoiceExtracts", mock.Anything, "o1").
		Return([]*persistence.InvoiceExtract{{ID: "e1", OwnerID: "o1"}}, nil)
	td.merger.On("MergeTemplate", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return("", fmt.Errorf("olia"))
	assert.Nil(t, handleExport(test.Ctx(t), td.msg, td.data))
	td.filer.AssertNotCalled(t, "SaveFile", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestHandleExport_NoJob(t *testing.T) {
	db := &mocks.DB{}
	db.On("LoadJob", mock.Anything, "j1").Return(nil, nil)
	data := &ServiceData{DB: db, Merger: &mocks.Merger{}, Filer: &mocks.Filer{}, Template: "invoice"}
	assert.Nil(t, handleExport(test.Ctx(t), messages.NewJobMessage("1", "j1", "o1"), data))
	db.AssertNotCalled(t, "LoadPendingInvoiceExtracts", mock.Anything, mock.Anything)
}

func TestValidate(t *testing.T) {
	d := &ServiceData{DB: &mocks.DB{}, Merger: &mocks.Merger{}, Filer: &mocks.Filer{}, WorkerCount: 1}
	assert.NotNil(t, validate(d))
}
