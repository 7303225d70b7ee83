// Copyright (c) 2025 The snowdemo Authors
// Licensed under the MIT License. See LICENSE file in the project root for details.

package logging

import (
	"fmt"
	"strings"

	"github.com/pterm/pterm"
)

// RemoteErrorType represents the category of a warehouse or model call failure.
type RemoteErrorType int

const (
	RemoteErrorUnknown RemoteErrorType = iota
	RemoteErrorNetwork
	RemoteErrorAuth
	RemoteErrorTimeout
	RemoteErrorNoWarehouse
	RemoteErrorNotFound
)

// ParseRemoteError categorizes a warehouse error message.
func ParseRemoteError(errMsg string) RemoteErrorType {
	lower := strings.ToLower(errMsg)

	if strings.Contains(lower, "390114") || strings.Contains(lower, "authentication token has expired") ||
		strings.Contains(lower, "jwt token is invalid") || strings.Contains(lower, "incorrect username or password") ||
		strings.Contains(lower, "invalid oauth access token") {
		return RemoteErrorAuth
	}
	if strings.Contains(lower, "no active warehouse") {
		return RemoteErrorNoWarehouse
	}
	if strings.Contains(lower, "does not exist or not authorized") {
		return RemoteErrorNotFound
	}
	if strings.Contains(lower, "deadline") || strings.Contains(lower, "timeout") {
		return RemoteErrorTimeout
	}
	if strings.Contains(lower, "connection refused") || strings.Contains(lower, "connection reset") ||
		strings.Contains(lower, "no such host") {
		return RemoteErrorNetwork
	}

	return RemoteErrorUnknown
}

// FormatRemoteError formats a warehouse error in a user-friendly way.
func FormatRemoteError(errMsg string) string {
	errType := ParseRemoteError(errMsg)

	var builder strings.Builder

	builder.WriteString(pterm.NewStyle(pterm.FgRed, pterm.Bold).Sprint("Warehouse call failed"))
	builder.WriteString("\n\n")

	switch errType {
	case RemoteErrorAuth:
		builder.WriteString("The warehouse rejected the credentials.\n")
		builder.WriteString("To fix this:\n")
		builder.WriteString("  • Check SNOWFLAKE_USER and SNOWFLAKE_ACCOUNT\n")
		builder.WriteString("  • Make sure the public key is registered for the user\n")
		builder.WriteString("  • Inside a container, the session token may have rotated; retry\n")

	case RemoteErrorNoWarehouse:
		builder.WriteString("No warehouse is active for this session.\n")
		builder.WriteString("Set SNOWFLAKE_WAREHOUSE or grant USAGE on the configured warehouse.\n")

	case RemoteErrorNotFound:
		builder.WriteString("An object referenced by the call does not exist or is not visible to the role.\n")
		builder.WriteString("Check SNOWFLAKE_ROLE, database and schema names.\n")

	case RemoteErrorTimeout:
		builder.WriteString("The warehouse did not answer in time.\n")

	case RemoteErrorNetwork:
		builder.WriteString("The warehouse endpoint could not be reached.\n")
		builder.WriteString("Check SNOWFLAKE_ACCOUNT / SNOWFLAKE_HOST and your network connection.\n")

	default:
		builder.WriteString("The warehouse returned an unexpected error.\n")
	}

	if strings.TrimSpace(errMsg) != "" {
		builder.WriteString("\n")
		builder.WriteString(pterm.NewStyle(pterm.FgGray).Sprint("Technical details: " + Mask(errMsg)))
	}

	return builder.String()
}

// PresentRemoteError displays a formatted warehouse error.
func PresentRemoteError(err error) {
	if err == nil {
		return
	}
	fmt.Println()
	fmt.Println(FormatRemoteError(err.Error()))
	fmt.Println()
}
