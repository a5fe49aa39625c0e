package service

import "errors"

// SubmitToken is the HTTP push path for captured tokens. The SQS consumer
// feeds the same broker.
func (s *Service) SubmitToken(value string, pawtect string, fingerprint string) error {
	if value == "" {
		return errors.New("empty token")
	}
	s.Broker.Supply(value)
	s.SetSidecar(pawtect, fingerprint)
	return nil
}

type TokenStatus struct {
	Needed    bool `json:"needed"`
	QueueSize int  `json:"queueSize"`
}

// TokenStatus tells the capture extension whether solving another challenge
// is worth the effort right now.
func (s *Service) TokenStatus() TokenStatus {
	return TokenStatus{
		Needed:    s.Broker.Needed(),
		QueueSize: s.Broker.QueueSize(),
	}
}
