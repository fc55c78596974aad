package ramp_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestRampHandler(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Ramp Handler Suite")
}
