package main

import (
	"strings"
	"testing"
)

func TestUsageDescribesSimState(t *testing.T) {
	if !strings.Contains(usageText, "starts from power-on state") {
		t.Error("Usage does not say that simulated state is not kept between invocations")
	}
}
