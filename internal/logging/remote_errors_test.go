// Copyright (c) 2025 The snowdemo Authors
// Licensed under the MIT License. See LICENSE file in the project root for details.

package logging

import (
	"strings"
	"testing"
)

func TestParseRemoteError(t *testing.T) {
	tests := []struct {
		name string
		msg  string
		want RemoteErrorType
	}{
		{"expired token", "390114 (08001): Authentication token has expired.", RemoteErrorAuth},
		{"bad jwt", "390144 (08004): JWT token is invalid.", RemoteErrorAuth},
		{"no warehouse", "000606 (57P03): No active warehouse selected in the current session.", RemoteErrorNoWarehouse},
		{"missing object", "002003 (02000): SQL compilation error: Schema 'LEARNING_DB.ETL' does not exist or not authorized.", RemoteErrorNotFound},
		{"timeout", "context deadline exceeded", RemoteErrorTimeout},
		{"network", "dial tcp: lookup xy.snowflakecomputing.com: no such host", RemoteErrorNetwork},
		{"other", "something odd", RemoteErrorUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseRemoteError(tt.msg); got != tt.want {
				t.Errorf("ParseRemoteError() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFormatRemoteError_MasksDetails(t *testing.T) {
	out := FormatRemoteError("request failed: token=abc.def")
	if strings.Contains(out, "abc.def") {
		t.Errorf("FormatRemoteError leaked token: %q", out)
	}
	if !strings.Contains(out, "Technical details") {
		t.Errorf("FormatRemoteError() missing details section: %q", out)
	}
}
