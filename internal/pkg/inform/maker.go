package inform

import (
	"fmt"

	"github.com/jordan-wright/email"
	"github.com/spf13/viper"
)

type emailMaker struct {
	from string
}

// NewEmailMaker creates the notification email maker
func NewEmailMaker(c *viper.Viper) (*emailMaker, error) {
	r := emailMaker{}
	r.from = c.GetString("smtp.from")
	if r.from == "" {
		return nil, fmt.Errorf("no smtp.from")
	}
	return &r, nil
}

// Make prepares the completion notification
func (m *emailMaker) Make(data *Data) (*email.Email, error) {
	if data.Email == "" {
		return nil, fmt.Errorf("no email address")
	}
	res := email.NewEmail()
	res.From = m.from
	res.To = []string{data.Email}
	res.Subject = fmt.Sprintf("Transcription ready: %s", data.JobNumber)
	res.Text = []byte(fmt.Sprintf("The transcription of '%s' (job %s, uploaded %s) is ready for review.\n",
		data.FileName, data.JobNumber, data.MsgTime.Format("2006-01-02 15:04")))
	return res, nil
}
