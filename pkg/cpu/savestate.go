package cpu

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// savedState is the JSON-serializable snapshot of CPU control state.
// Memory travels separately as a raw binary entry.
type savedState struct {
	Regs  [NumRegisters]uint16 `json:"regs"`
	State State                `json:"state"`
	Steps uint64               `json:"steps"`
	Fault *Fault               `json:"fault,omitempty"`
}

// SaveStateToBytes serializes the whole machine into an in-memory ZIP
// archive: cpu_state.json with the register file and run state, and
// memory.bin with the full 64KiB address space.
func (c *CPU) SaveStateToBytes() ([]byte, error) {
	buf := new(bytes.Buffer)
	zw := zip.NewWriter(buf)

	state := savedState{
		Regs:  c.Regs,
		State: c.State,
		Steps: c.Steps,
		Fault: c.Fault,
	}
	jsonData, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal cpu_state: %w", err)
	}
	if err := writeZipEntry(zw, "cpu_state.json", jsonData); err != nil {
		return nil, err
	}
	if err := writeZipEntry(zw, "memory.bin", c.Memory[:]); err != nil {
		return nil, err
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("close zip: %w", err)
	}
	return buf.Bytes(), nil
}

// RestoreFromBytes applies a snapshot produced by SaveStateToBytes.
func (c *CPU) RestoreFromBytes(data []byte) error {
	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return fmt.Errorf("open zip: %w", err)
	}

	fileMap := make(map[string]*zip.File, len(r.File))
	for _, f := range r.File {
		fileMap[f.Name] = f
	}

	jsonData, err := readZipEntry(fileMap, "cpu_state.json")
	if err != nil {
		return err
	}
	var state savedState
	if err := json.Unmarshal(jsonData, &state); err != nil {
		return fmt.Errorf("unmarshal cpu_state: %w", err)
	}

	memData, err := readZipEntry(fileMap, "memory.bin")
	if err != nil {
		return err
	}
	if len(memData) != len(c.Memory) {
		return fmt.Errorf("memory.bin is %d bytes, want %d", len(memData), len(c.Memory))
	}

	c.Regs = state.Regs
	c.State = state.State
	c.Steps = state.Steps
	c.Fault = state.Fault
	copy(c.Memory[:], memData)
	return nil
}

// SaveStateToFile writes the snapshot archive to path.
func (c *CPU) SaveStateToFile(path string) error {
	data, err := c.SaveStateToBytes()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// RestoreFromFile reads a snapshot archive from path and applies it.
func (c *CPU) RestoreFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return c.RestoreFromBytes(data)
}

func writeZipEntry(zw *zip.Writer, name string, data []byte) error {
	w, err := zw.Create(name)
	if err != nil {
		return fmt.Errorf("create zip entry %q: %w", name, err)
	}
	_, err = w.Write(data)
	return err
}

func readZipEntry(fileMap map[string]*zip.File, name string) ([]byte, error) {
	f, ok := fileMap[name]
	if !ok {
		return nil, fmt.Errorf("zip entry %q not found", name)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("open zip entry %q: %w", name, err)
	}
	defer rc.Close()
	return io.ReadAll(rc)
}
