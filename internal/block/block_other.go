//go:build !unix

package block

import "github.com/cockroachdb/errors"

const mmapSupported = false

func mmap(int) ([]byte, error) {
	return nil, errors.New("block: mmap not supported on this platform")
}

func munmap([]byte) error {
	return nil
}
