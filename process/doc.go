// Package process runs external programs, chiefly the audio capture tool
// that feeds live microphone input to a transcription stream.
//
// Start launches a command and exposes its standard output as a stream.
// Closing the stream stops the process: SIGTERM first, SIGKILL after the
// grace period.
//
//	capture, err := process.Start(ctx, process.MicrophoneCommand("sox", 16000))
//	defer capture.Close()
//	src := audio.NewStreamSource(capture, "audio/wav")
package process
