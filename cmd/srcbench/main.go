// Command srcbench drives internal/audio's 3-stage sample-rate converter
// against a synthetic input tone so its convergence behaviour can be
// inspected offline. With --play it also streams the converted output to
// the default audio device via portaudio, which is the only way to
// actually hear what the adaptive stage's step size does to the tone.
package main

import (
	"fmt"
	"math"
	"os"

	"github.com/gordonklaus/portaudio"
	"github.com/spf13/pflag"

	"github.com/blockbox/controller/internal/audio"
	"github.com/blockbox/controller/internal/resampler"
)

func main() {
	rate := pflag.Uint("rate", 48000, "input sample rate (44100, 48000, or 96000)")
	seconds := pflag.Float64("seconds", 1.0, "length of the synthetic tone to convert")
	toneHz := pflag.Float64("tone", 1000, "tone frequency in Hz")
	play := pflag.Bool("play", false, "stream the converted output through the default audio device")
	pflag.Parse()

	inRate, err := inputRateFromHz(uint(*rate))
	if err != nil {
		fmt.Fprintln(os.Stderr, "srcbench:", err)
		os.Exit(1)
	}

	src, err := audio.NewChannelSRC(audio.SRCConfig{
		Rate:             inRate,
		Interp2xCoefs:    identityCoefs(8),
		Fixed160Over147:  identityPolyphase(160, 8),
		AdaptiveCoefs:    identityPolyphase(32, 16),
		ScratchBatchSize: 4096,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "srcbench: building converter:", err)
		os.Exit(1)
	}

	in := synthTone(*toneHz, float64(*rate), *seconds)
	out := make([]float32, len(in)*2+64)

	step := resampler.Step{Int: 1, Frac: 0}
	consumed := src.Convert(in, out, step)

	fmt.Printf("converted %d of %d input samples at %d Hz into a %d-sample output buffer at %d Hz\n",
		consumed, len(in), *rate, len(out), audio.TargetRate)

	if *play {
		if err := streamOut(out); err != nil {
			fmt.Fprintln(os.Stderr, "srcbench: playback:", err)
			os.Exit(1)
		}
	}
}

func inputRateFromHz(hz uint) (audio.InputRate, error) {
	switch hz {
	case 44100:
		return audio.Rate44100, nil
	case 48000:
		return audio.Rate48000, nil
	case 96000:
		return audio.Rate96000, nil
	default:
		return 0, fmt.Errorf("unsupported --rate %d (want 44100, 48000, or 96000)", hz)
	}
}

func synthTone(freqHz, sampleRate, seconds float64) []float32 {
	n := int(sampleRate * seconds)
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(math.Sin(2 * math.Pi * freqHz * float64(i) / sampleRate))
	}
	return out
}

func identityCoefs(taps int) []float32 {
	c := make([]float32, taps)
	c[taps/2] = 1
	return c
}

func identityPolyphase(phases, taps int) [][]float32 {
	rows := make([][]float32, phases)
	for p := range rows {
		rows[p] = identityCoefs(taps)
	}
	return rows
}

func streamOut(samples []float32) error {
	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("initializing portaudio: %w", err)
	}
	defer portaudio.Terminate()

	stream, err := portaudio.OpenDefaultStream(0, 1, float64(audio.TargetRate), len(samples), &samples)
	if err != nil {
		return fmt.Errorf("opening default stream: %w", err)
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return fmt.Errorf("starting stream: %w", err)
	}
	if err := stream.Write(); err != nil {
		return fmt.Errorf("writing stream: %w", err)
	}
	return stream.Stop()
}
