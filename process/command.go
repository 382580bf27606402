package process

import (
	"io"
	"runtime"
	"strconv"
	"time"
)

// DefaultGracePeriod is the time between SIGTERM and SIGKILL.
const DefaultGracePeriod = 5 * time.Second

// Command configures a subprocess.
type Command struct {
	// Binary is the executable path or name (resolved via PATH).
	Binary string
	Args   []string
	// Dir is the working directory. Empty means the current directory.
	Dir string
	// Env is appended to the inherited environment (key=value).
	Env   []string
	Stdin io.Reader
	// GracePeriod overrides DefaultGracePeriod.
	GracePeriod time.Duration
}

func (c Command) gracePeriod() time.Duration {
	if c.GracePeriod > 0 {
		return c.GracePeriod
	}
	return DefaultGracePeriod
}

// MicrophoneCommand records mono 16-bit signed PCM from the default input
// device at sampleRate and writes it as WAV to standard output. tool is
// the sox executable; empty means "sox".
func MicrophoneCommand(tool string, sampleRate int) Command {
	return microphoneCommand(runtime.GOOS, tool, sampleRate)
}

func microphoneCommand(goos, tool string, sampleRate int) Command {
	if tool == "" {
		tool = "sox"
	}
	var input []string
	if goos == "windows" {
		input = []string{"-t", "waveaudio", "default"}
	} else {
		input = []string{"--default-device"}
	}
	args := append(input,
		"--no-show-progress",
		"--rate", strconv.Itoa(sampleRate),
		"--channels", "1",
		"--encoding", "signed-integer",
		"--bits", "16",
		"--type", "wav",
		"-",
	)
	return Command{Binary: tool, Args: args}
}
