package utils

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/MrSnakeDoc/smartmarks/internal/logger"
)

type recordingCloser struct {
	name  string
	err   error
	order *[]string
}

func (r recordingCloser) Close() error {
	*r.order = append(*r.order, r.name)
	return r.err
}

func TestCloseAll(t *testing.T) {
	var order []string
	boom := errors.New("boom")

	err := CloseAll(logger.Nop(),
		NamedCloser{Name: "server", Closer: recordingCloser{name: "server", order: &order}},
		NamedCloser{Name: "nothing"},
		NamedCloser{Name: "feed", Closer: recordingCloser{name: "feed", err: boom, order: &order}},
		NamedCloser{Name: "store", Closer: recordingCloser{name: "store", order: &order}},
	)

	assert.Equal(t, []string{"server", "feed", "store"}, order)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "close feed")
}

func TestCloseAllNoErrors(t *testing.T) {
	assert.NoError(t, CloseAll(logger.Nop()))
}
