package core

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type countingStore struct {
	state  map[string]string
	writes int
	fail   bool
}

func (s *countingStore) GetState(ctx context.Context, key string) (string, bool) {
	v, ok := s.state[key]
	return v, ok
}

func (s *countingStore) SetState(ctx context.Context, key, val string) error {
	if s.fail {
		return errors.New("disk full")
	}
	s.writes++
	s.state[key] = val
	return nil
}

func (s *countingStore) DeleteState(ctx context.Context, key string) error {
	delete(s.state, key)
	return nil
}

func TestSessionPersistenceJob(t *testing.T) {
	st := &countingStore{state: map[string]string{}}
	current := map[string]string{"high_pitch": "false", "flight_mode": "map"}
	j := NewSessionPersistenceJob(st, time.Second, func() map[string]string {
		out := make(map[string]string, len(current))
		for k, v := range current {
			out[k] = v
		}
		return out
	}, nil)
	ctx := context.Background()

	j.Prime(map[string]string{"high_pitch": "false"})
	j.Run(ctx)
	assert.Equal(t, 1, st.writes, "primed key is not rewritten")
	assert.Equal(t, "map", st.state["flight_mode"])

	j.Run(ctx)
	assert.Equal(t, 1, st.writes, "unchanged snapshot writes nothing")

	current["high_pitch"] = "true"
	j.Flush(ctx)
	assert.Equal(t, 2, st.writes)
	assert.Equal(t, "true", st.state["high_pitch"])

	// A failed write is retried on the next run.
	st.fail = true
	current["flight_mode"] = "drone"
	j.Run(ctx)
	st.fail = false
	j.Run(ctx)
	assert.Equal(t, "drone", st.state["flight_mode"])
	assert.Equal(t, 3, st.writes)
}
