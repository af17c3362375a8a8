package x64

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestX64(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "X64 Backend Suite")
}
