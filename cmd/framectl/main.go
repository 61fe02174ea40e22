// Command framectl is a bench tool for exercising the link-framer wire
// codec: it encodes a payload to framed bytes, or decodes framed bytes
// back to a payload, so the framing/escaping/CRC logic can be inspected
// and diffed against a real module's UART trace without bringing up the
// whole controller.
package main

import (
	"encoding/hex"
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/blockbox/controller/internal/linkframer"
)

func main() {
	decode := pflag.BoolP("decode", "d", false, "decode framed hex from stdin instead of encoding")
	frameType := pflag.Uint8P("type", "t", uint8(linkframer.TypeReadOrEvent), "frame type byte to encode")
	payloadHex := pflag.StringP("payload", "p", "", "payload bytes as hex (encode mode)")
	pflag.Parse()

	if *decode {
		if err := runDecode(); err != nil {
			fmt.Fprintln(os.Stderr, "framectl:", err)
			os.Exit(1)
		}
		return
	}
	if err := runEncode(*frameType, *payloadHex); err != nil {
		fmt.Fprintln(os.Stderr, "framectl:", err)
		os.Exit(1)
	}
}

func runEncode(frameType uint8, payloadHex string) error {
	payload, err := hex.DecodeString(payloadHex)
	if err != nil {
		return fmt.Errorf("parsing --payload: %w", err)
	}
	frame := linkframer.EncodeFrame(frameType, payload)
	fmt.Println(hex.EncodeToString(frame))
	return nil
}

func runDecode() error {
	raw, err := os.ReadFile("/dev/stdin")
	if err != nil {
		return fmt.Errorf("reading stdin: %w", err)
	}
	data, err := hex.DecodeString(string(trimNewline(raw)))
	if err != nil {
		return fmt.Errorf("parsing stdin hex: %w", err)
	}

	d := linkframer.NewDecoder()
	frames, errs := d.FeedAll(data)
	for _, fe := range errs {
		fmt.Fprintln(os.Stderr, "framectl: frame error:", fe)
	}
	for _, f := range frames {
		fmt.Printf("type=0x%02x payload=%s\n", f.Type, hex.EncodeToString(f.Payload))
	}
	if len(frames) == 0 {
		return fmt.Errorf("no complete frames decoded")
	}
	return nil
}

func trimNewline(b []byte) []byte {
	for len(b) > 0 && (b[len(b)-1] == '\n' || b[len(b)-1] == '\r') {
		b = b[:len(b)-1]
	}
	return b
}
