package inform

import (
	"fmt"
	"net/smtp"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/jordan-wright/email"
	"github.com/spf13/viper"
)

type simpleEmailSender struct {
	addr string
	auth smtp.Auth
}

// NewSimpleEmailSender creates a plain smtp email sender
func NewSimpleEmailSender(c *viper.Viper) (*simpleEmailSender, error) {
	r := simpleEmailSender{}
	host := c.GetString("smtp.host")
	if host == "" {
		return nil, fmt.Errorf("no smtp.host")
	}
	port := c.GetInt("smtp.port")
	if port == 0 {
		port = 25
	}
	r.addr = fmt.Sprintf("%s:%d", host, port)
	if user := c.GetString("smtp.username"); user != "" {
		r.auth = smtp.PlainAuth("", user, c.GetString("smtp.password"), host)
	}
	goapp.Log.Info().Str("addr", r.addr).Msg("smtp sender")
	return &r, nil
}

// Send sends email
func (s *simpleEmailSender) Send(e *email.Email) error {
	return e.Send(s.addr, s.auth)
}
