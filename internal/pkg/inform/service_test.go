package inform

import (
	"fmt"
	"testing"
	"time"

	"github.com/dictamed/scriba/internal/pkg/messages"
	"github.com/dictamed/scriba/internal/pkg/persistence"
	"github.com/dictamed/scriba/internal/pkg/test"
	"github.com/dictamed/scriba/internal/pkg/test/mocks"
	"github.com/jordan-wright/email"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockSender struct{ mock.Mock }

func (m *mockSender) Send(e *email.Email) error {
	args := m.Called(e)
	return args.Error(0)
}

type mockMaker struct{ mock.Mock }

func (m *mockMaker) Make(data *Data) (*email.Email, error) {
	args := m.Called(data)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*email.Email), args.Error(1)
}

type testData struct {
	db     *mocks.DB
	sender *mockSender
	maker  *mockMaker
	data   *ServiceData
	msg    *messages.JobMessage
}

func initTestData(t *testing.T) *testData {
	t.Helper()
	res := &testData{db: &mocks.DB{}, sender: &mockSender{}, maker: &mockMaker{}}
	res.data = &ServiceData{DB: res.db, EmailSender: res.sender, EmailMaker: res.maker}
	res.msg = messages.NewJobMessage("1", "j1", "o1")
	return res
}

func TestHandleInform(t *testing.T) {
	td := initTestData(t)
	td.db.On("LoadJob", mock.Anything, "j1").Return(&persistence.JobRecord{ID: "j1",
		JobNumber: "20260831-001", OwnerID: "o1", FileName: "memo.wav"}, nil)
	td.db.On("LoadOwnerEmail", mock.Anything, "o1").Return("doc@clinic.org", nil)
	e := email.NewEmail()
	td.maker.On("Make", mock.MatchedBy(func(d *Data) bool {
		return d.Email == "doc@clinic.org" && d.JobNumber == "20260831-001"
	})).Return(e, nil)
	td.sender.On("Send", e).Return(nil)

	require.Nil(t, handleInform(test.Ctx(t), td.msg, td.data))
	td.sender.AssertExpectations(t)
}

func TestHandleInform_NoEmail_Skips(t *testing.T) {
	td := initTestData(t)
	td.db.On("LoadJob", mock.Anything, "j1").Return(&persistence.JobRecord{ID: "j1", OwnerID: "o1"}, nil)
	td.db.On("LoadOwnerEmail", mock.Anything, "o1").Return("", nil)
	require.Nil(t, handleInform(test.Ctx(t), td.msg, td.data))
	td.sender.AssertNotCalled(t, "Send", mock.Anything)
}

func TestHandleInform_NoJob_Skips(t *testing.T) {
	td := initTestData(t)
	td.db.On("LoadJob", mock.Anything, "j1").Return(nil, nil)
	require.Nil(t, handleInform(test.Ctx(t), td.msg, td.data))
	td.sender.AssertNotCalled(t, "Send", mock.Anything)
}

func TestHandleInform_SendFails(t *testing.T) {
	td := initTestData(t)
	td.db.On("LoadJob", mock.Anything, "j1").Return(&persistence.JobRecord{ID: "j1", OwnerID: "o1"}, nil)
	td.db.On("LoadOwnerEmail", mock.Anything, "o1").Return("doc@clinic.org", nil)
	td.maker.On("Make", mock.Anything).Return(email.NewEmail(), nil)
	td.sender.On("Send", mock.Anything).Return(fmt.Errorf("olia"))
	assert.NotNil(t, handleInform(test.Ctx(t), td.msg, td.data))
}

func TestEmailMaker(t *testing.T) {
	v := viper.New()
	v.Set("smtp.from", "scriba@clinic.org")
	m, err := NewEmailMaker(v)
	require.Nil(t, err)
	e, err := m.Make(&Data{Email: "doc@clinic.org", JobNumber: "20260831-001",
		FileName: "memo.wav", MsgTime: time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC)})
	require.Nil(t, err)
	assert.Equal(t, []string{"doc@clinic.org"}, e.To)
	assert.Contains(t, e.Subject, "20260831-001")
	assert.Contains(t, string(e.Text), "memo.wav")
}

func TestEmailMaker_Fails(t *testing.T) {
	_, err := NewEmailMaker(viper.New())
	assert.NotNil(t, err)
	v := viper.New()
	v.Set("smtp.from", "scriba@clinic.org")
	m, _ := NewEmailMaker(v)
	_, err = m.Make(&Data{})
	assert.NotNil(t, err)
}

func TestToLocalTime(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Vilnius")
	require.Nil(t, err)
	d := &ServiceData{Location: loc}
	at := time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC)
	assert.Equal(t, at.In(loc), toLocalTime(d, at))
	assert.Equal(t, at, toLocalTime(&ServiceData{}, at))
}
