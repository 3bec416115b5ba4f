package decode

import (
	"bytes"
	"encoding/binary"
	"os"
	"testing"
)

// writeSmplWAV hand-writes a 16-bit PCM WAV with a smpl chunk carrying one
// loop, since the go-audio encoder only writes LIST-INFO metadata. loopEnd
// follows smpl convention: the last sample of the loop, inclusive.
func writeSmplWAV(t *testing.T, path string, channels, rate, frames, loopStart, loopEnd int) {
	t.Helper()

	var data bytes.Buffer
	for f := 0; f < frames; f++ {
		for c := 0; c < channels; c++ {
			binary.Write(&data, binary.LittleEndian, int16(f))
		}
	}

	var smpl bytes.Buffer
	header := []uint32{
		0,                          // manufacturer
		0,                          // product
		uint32(1000000000 / rate),  // sample period in ns
		60,                         // MIDI unity note
		0,                          // MIDI pitch fraction
		0,                          // SMPTE format
		0,                          // SMPTE offset
		1,                          // number of sample loops
		0,                          // sampler data size
	}
	for _, v := range header {
		binary.Write(&smpl, binary.LittleEndian, v)
	}
	loop := []uint32{
		0,                 // cue point ID
		0,                 // loop type: forward
		uint32(loopStart), // start
		uint32(loopEnd),   // end, inclusive
		0,                 // fraction
		0,                 // play count: infinite
	}
	for _, v := range loop {
		binary.Write(&smpl, binary.LittleEndian, v)
	}

	blockAlign := channels * 2
	var fmtChunk bytes.Buffer
	binary.Write(&fmtChunk, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(&fmtChunk, binary.LittleEndian, uint16(channels))
	binary.Write(&fmtChunk, binary.LittleEndian, uint32(rate))
	binary.Write(&fmtChunk, binary.LittleEndian, uint32(rate*blockAlign))
	binary.Write(&fmtChunk, binary.LittleEndian, uint16(blockAlign))
	binary.Write(&fmtChunk, binary.LittleEndian, uint16(16))

	var body bytes.Buffer
	body.WriteString("WAVE")
	writeChunk(&body, "fmt ", fmtChunk.Bytes())
	writeChunk(&body, "data", data.Bytes())
	writeChunk(&body, "smpl", smpl.Bytes())

	var file bytes.Buffer
	file.WriteString("RIFF")
	binary.Write(&file, binary.LittleEndian, uint32(body.Len()))
	file.Write(body.Bytes())

	if err := os.WriteFile(path, file.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
}

func writeChunk(w *bytes.Buffer, id string, payload []byte) {
	w.WriteString(id)
	binary.Write(w, binary.LittleEndian, uint32(len(payload)))
	w.Write(payload)
	if len(payload)%2 == 1 {
		w.WriteByte(0)
	}
}
