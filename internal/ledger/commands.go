package ledger

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// command is a serialisable ledger write. run must not touch anything outside the tx.
type command interface {
	name() string
	run(t *tx) (any, error)
}

var commands = map[string]func() command{
	"create_user":       func() command { return &createUser{} },
	"update_freelancer": func() command { return &updateFreelancer{} },
	"create_skill":      func() command { return &createSkill{} },
	"create_job":        func() command { return &createJob{} },
	"publish_job":       func() command { return &publishJob{} },
	"assign_job":        func() command { return &assignJob{} },
	"complete_job":      func() command { return &completeJob{} },
	"delete_job":        func() command { return &deleteJob{} },
	"settle_job":        func() command { return &settleJob{} },
	"give_feedback":     func() command { return &giveFeedback{} },
	"raise_dispute":     func() command { return &raiseDispute{} },
	"resolve_dispute":   func() command { return &resolveDispute{} },
}

func newEntry(seq uint64, cmd command, at time.Time, policy Policy) (Entry, error) {
	payload, err := json.Marshal(cmd)
	if err != nil {
		return Entry{}, err
	}
	return Entry{
		ID:      uuid.New(),
		Seq:     seq,
		Command: cmd.name(),
		Payload: payload,
		Policy:  &policy,
		At:      at,
	}, nil
}

func decodeCommand(name string, payload json.RawMessage) (command, error) {
	mk, ok := commands[name]
	if !ok {
		return nil, fmt.Errorf("unknown ledger command %q", name)
	}
	cmd := mk()
	if err := json.Unmarshal(payload, cmd); err != nil {
		return nil, err
	}
	return cmd, nil
}
