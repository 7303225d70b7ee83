// Copyright (c) 2025 The snowdemo Authors
// Licensed under the MIT License. See LICENSE file in the project root for details.

package warehouse

import (
	"context"
	"log/slog"
)

// Borrow opens a session for a single call. Parameters are resolved again
// each time, so a rotated session token is picked up by the next call.
// release closes the session and must be called once the call is done.
func (a *Acquirer) Borrow(ctx context.Context) (s *Session, release func(), err error) {
	acq, err := a.Acquire(ctx, nil)
	if err != nil {
		return nil, nil, err
	}
	return acq.Session, func() {
		if err := acq.Release(); err != nil {
			a.logger().Debug("close warehouse session", "error", err)
		}
	}, nil
}

func (a *Acquirer) logger() *slog.Logger {
	if a.Logger != nil {
		return a.Logger
	}
	return slog.Default()
}
