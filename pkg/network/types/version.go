package types

import (
	"fmt"

	goversion "github.com/hashicorp/go-version"
)

// CurrentProtocolVersion is stamped on every Message this build emits.
const CurrentProtocolVersion uint = 1

// supportedConstraint mirrors the teacher's LatestProtocolVersion /
// ErrUnsupportedProtocol guard (pkg/mcast/protocol.go), expressed with
// a real semver range instead of a bare integer comparison.
var supportedConstraint = mustConstraint(">= 1.0, < 2.0")

func mustConstraint(expr string) goversion.Constraints {
	c, err := goversion.NewConstraint(expr)
	if err != nil {
		panic(fmt.Sprintf("network: invalid protocol constraint %q: %v", expr, err))
	}
	return c
}

// CheckProtocolVersion returns ErrUnsupportedVersion if v falls
// outside the range this build can speak.
func CheckProtocolVersion(v uint) error {
	ver, err := goversion.NewVersion(fmt.Sprintf("%d.0", v))
	if err != nil {
		return ErrUnsupportedVersion
	}
	if !supportedConstraint.Check(ver) {
		return ErrUnsupportedVersion
	}
	return nil
}
