package client

import (
	"testing"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		// opencensus (pulled in transitively by google.golang.org/api) starts
		// a stats worker goroutine from package init() that can never be
		// stopped, so it shows up as a leak in every test binary.
		goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"),
	)
}
