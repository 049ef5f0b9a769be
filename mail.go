// Copyright 2018 The ACH Authors
// Use of this source code is governed by an Apache License
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"crypto/tls"
	"errors"
	"fmt"
	"html/template"
	"net/url"

	"gopkg.in/gomail.v2"
)

const resetSubject = "Password Reset Request"

var resetHTML = template.Must(template.New("reset").Parse(
	`<p>Click the link to reset your password: <a href="{{.Link}}">{{.Link}}</a></p>`,
))

// mailDialer is satisfied by *gomail.Dialer.
type mailDialer interface {
	DialAndSend(m ...*gomail.Message) error
}

type resetMailer struct {
	dialer   mailDialer
	from     string
	fromName string
	resetURL *url.URL
}

func newResetMailer(cfg MailConfig, resetURL string) (*resetMailer, error) {
	d := gomail.NewDialer(cfg.Server, cfg.Port, cfg.Username, cfg.Password)
	d.SSL = cfg.SSL
	d.TLSConfig = &tls.Config{ServerName: cfg.Server, MinVersion: tls.VersionTLS12}
	return newResetMailerWithDialer(d, cfg.From, cfg.FromName, resetURL)
}

func newResetMailerWithDialer(d mailDialer, from, fromName, resetURL string) (*resetMailer, error) {
	if d == nil {
		return nil, errors.New("nil mail dialer")
	}
	u, err := url.Parse(resetURL)
	if err != nil {
		return nil, fmt.Errorf("invalid reset url %q: %v", resetURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("reset url %q must be absolute", resetURL)
	}
	return &resetMailer{
		dialer:   d,
		from:     from,
		fromName: fromName,
		resetURL: u,
	}, nil
}

// link returns the frontend reset page with token added to its query.
func (m *resetMailer) link(token string) string {
	u := *m.resetURL
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String()
}

func (m *resetMailer) message(to, token string) (*gomail.Message, error) {
	link := m.link(token)

	var html bytes.Buffer
	if err := resetHTML.Execute(&html, struct{ Link string }{link}); err != nil {
		return nil, fmt.Errorf("rendering reset email: %v", err)
	}

	msg := gomail.NewMessage()
	msg.SetAddressHeader("From", m.from, m.fromName)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", resetSubject)
	msg.SetBody("text/plain", fmt.Sprintf("Click the link to reset your password: %s", link))
	msg.AddAlternative("text/html", html.String())
	return msg, nil
}

func (m *resetMailer) sendResetEmail(to, token string) error {
	msg, err := m.message(to, token)
	if err != nil {
		return err
	}
	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("sending reset email: %v", err)
	}
	return nil
}
