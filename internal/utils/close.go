package utils

import (
	"errors"
	"fmt"
	"io"

	"github.com/MrSnakeDoc/smartmarks/internal/logger"
)

// NamedCloser pairs a resource with the name used in logs.
type NamedCloser struct {
	Name   string
	Closer io.Closer
}

// CloseAll closes resources in the given order. Nil closers are skipped.
// Every failure is logged and the joined error is returned.
func CloseAll(log logger.Logger, closers ...NamedCloser) error {
	var errs []error
	for _, c := range closers {
		if c.Closer == nil {
			continue
		}
		if err := c.Closer.Close(); err != nil {
			log.Warn("failed to close", logger.String("resource", c.Name), logger.Error(err))
			errs = append(errs, fmt.Errorf("close %s: %w", c.Name, err))
			continue
		}
		log.Debug("closed", logger.String("resource", c.Name))
	}
	return errors.Join(errs...)
}
