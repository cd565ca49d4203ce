package domain

import (
	"time"

	"github.com/google/uuid"
)

// Role identifies which end produced a report.
type Role string

const (
	RoleSender   Role = "sender"
	RoleReceiver Role = "receiver"
)

// Outcome summarizes how a transfer ended.
type Outcome string

const (
	// OutcomeCompleted: every declared fragment was delivered and the
	// completion handshake finished.
	OutcomeCompleted Outcome = "completed"

	// OutcomeIncomplete: the transfer ended (by silence, a missing final
	// acknowledgment or surplus fragments) with data delivered but not
	// confirmed complete.
	OutcomeIncomplete Outcome = "incomplete"

	// OutcomeTimedOut: no session was established.
	OutcomeTimedOut Outcome = "timed_out"

	// OutcomeFailed: the transfer was aborted.
	OutcomeFailed Outcome = "failed"
)

// FragmentStatus records the fate of one transmission.
type FragmentStatus struct {
	Fragment int    `json:"fragment"`
	Result   string `json:"result"` // ACK, RST or TIMEOUT
}

// TransferReport is the only output of the engines. Callers render it.
type TransferReport struct {
	SessionID  uuid.UUID    `json:"session_id"`
	Role       Role         `json:"role"`
	Kind       TransferKind `json:"kind"`
	Peer       string       `json:"peer"`
	TargetName string       `json:"target_name,omitempty"`
	SavedAs    string       `json:"saved_as,omitempty"`

	FragmentSize       int `json:"fragment_size"`
	FragmentsExpected  int `json:"fragments_expected"`
	FragmentsDelivered int `json:"fragments_delivered"`

	// FragmentsSent counts every data transmission including retransmits.
	FragmentsSent int   `json:"fragments_sent"`
	NackCount     int   `json:"nack_count"`
	Timeouts      int   `json:"timeouts"`
	Bytes         int64 `json:"bytes"`

	StatusLog []FragmentStatus `json:"status_log,omitempty"`

	Outcome Outcome `json:"outcome"`
	Error   string  `json:"error,omitempty"`

	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
}

// NewReport starts a report for the given session.
func NewReport(role Role, s *Session) TransferReport {
	r := TransferReport{
		Role:      role,
		StartedAt: time.Now(),
	}
	if s != nil {
		r.SessionID = s.ID
		r.Kind = s.Kind
		r.TargetName = s.TargetName
		r.FragmentSize = s.FragmentSize
		r.FragmentsExpected = s.TotalFragments
		if s.Peer != nil {
			r.Peer = s.Peer.String()
		}
	}
	return r
}

// Finish stamps the duration and outcome. A non-nil err is recorded as text.
func (r *TransferReport) Finish(outcome Outcome, err error) {
	r.Outcome = outcome
	r.Duration = time.Since(r.StartedAt)
	if err != nil {
		r.Error = err.Error()
	}
}

// Record appends a status log entry.
func (r *TransferReport) Record(fragment int, result string) {
	r.StatusLog = append(r.StatusLog, FragmentStatus{Fragment: fragment, Result: result})
}

// Complete reports whether every declared fragment was delivered.
func (r TransferReport) Complete() bool {
	return r.FragmentsDelivered == r.FragmentsExpected
}
