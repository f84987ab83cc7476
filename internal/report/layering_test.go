package report

import (
	"testing"

	"staytrack/testutil"
)

func TestReportDoesNotDependOnHTTP(t *testing.T) {
	testutil.AssertImports(t, ".", testutil.TransportForbidden, testutil.APIForbidden)
}
