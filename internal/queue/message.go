package queue

import (
	"fmt"
	"strings"
	"time"
)

// AddressGeneratedMessage is the broker payload for a persisted address.
type AddressGeneratedMessage struct {
	Address     string    `json:"address"`
	RunID       string    `json:"runId"`
	BatchIndex  int       `json:"batchIndex"`
	GeneratedAt time.Time `json:"generatedAt"`
}

func (m AddressGeneratedMessage) Validate() error {
	if strings.TrimSpace(m.Address) == "" {
		return fmt.Errorf("address is required")
	}
	if strings.TrimSpace(m.RunID) == "" {
		return fmt.Errorf("runId is required")
	}
	if m.BatchIndex < 0 {
		return fmt.Errorf("invalid batch index %d", m.BatchIndex)
	}
	return nil
}

// MessageID is stable per run and address so consumers can deduplicate.
func (m AddressGeneratedMessage) MessageID() string {
	return m.RunID + ":" + strings.ToLower(strings.TrimSpace(m.Address))
}
