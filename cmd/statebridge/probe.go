package main

import (
	"context"
	"os"
	"strings"

	"git.home.luguber.info/inful/statebridge/internal/permissions"
)

// envProbe answers permission checks from STATEBRIDGE_PERMISSION_<KIND>
// environment variables. It stands in for the platform authorization
// service, which this process cannot reach directly; deployments point the
// variables at whatever the host agent reports.
type envProbe struct{}

func newEnvProbe() *envProbe { return &envProbe{} }

func (p *envProbe) Check(_ context.Context, kind permissions.Kind) (permissions.Status, error) {
	raw := os.Getenv("STATEBRIDGE_PERMISSION_" + strings.ToUpper(string(kind)))
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "granted":
		return permissions.StatusGranted, nil
	case "denied":
		return permissions.StatusDenied, nil
	case "restricted":
		return permissions.StatusRestricted, nil
	case "":
		return permissions.StatusNotDetermined, nil
	default:
		return permissions.StatusUnavailable, nil
	}
}

func (p *envProbe) Request(ctx context.Context, kind permissions.Kind) (permissions.Status, error) {
	// There is no dialog to raise; a request resolves to whatever the
	// environment currently reports.
	return p.Check(ctx, kind)
}
