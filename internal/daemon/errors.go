// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package daemon

import "errors"

// ErrAlreadyRunning is returned by a second Run.
var ErrAlreadyRunning = errors.New("daemon already running")
