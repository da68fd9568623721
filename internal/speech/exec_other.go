//go:build !unix

package speech

import (
	"os"

	"github.com/yuanying/narrator/internal/playback"
)

func suspend(*os.Process) error {
	return playback.ErrPauseUnsupported
}

func resume(*os.Process) error {
	return playback.ErrPauseUnsupported
}
