package transport

import (
	"fmt"
	"sync"

	"github.com/KevinKickass/OpenMachineIO/internal/types"
)

// Memory is an in-process register file. It backs the "sim" bus driver and
// the package tests.
//
// Each register is stride bytes wide. Multi-byte accesses run on from the
// first byte of reg, so a stride of 1 models auto-incrementing 8-bit
// register maps and a stride of 2 models 16-bit pointer registers.
type Memory struct {
	name   string
	addr   uint16
	stride int

	mu     sync.Mutex
	data   []byte
	mirror map[byte]byte
	fail   map[byte]error
	reads  int
	writes int
}

// NewMemory returns a register file of 256 8-bit registers.
func NewMemory(name string, addr uint16) *Memory {
	return newMemory(name, addr, 1)
}

// NewWordMemory returns a register file of 256 16-bit registers.
func NewWordMemory(name string, addr uint16) *Memory {
	return newMemory(name, addr, 2)
}

func newMemory(name string, addr uint16, stride int) *Memory {
	return &Memory{
		name:   name,
		addr:   addr,
		stride: stride,
		data:   make([]byte, 256*stride),
		mirror: make(map[byte]byte),
		fail:   make(map[byte]error),
	}
}

// Poke stores values from the first byte of reg on, without counting a bus
// operation.
func (m *Memory) Poke(reg byte, values ...byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	copy(m.data[int(reg)*m.stride:], values)
}

// Peek returns n bytes from the first byte of reg on, without counting a
// bus operation.
func (m *Memory) Peek(reg byte, n int) []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]byte, n)
	copy(out, m.data[int(reg)*m.stride:])
	return out
}

// Set stores v in the first byte of reg.
func (m *Memory) Set(reg, v byte) { m.Poke(reg, v) }

// Get returns the first byte of reg.
func (m *Memory) Get(reg byte) byte { return m.Peek(reg, 1)[0] }

// Mirror copies every write to register from into register to as well,
// the way an expander's input port follows its output latch.
func (m *Memory) Mirror(from, to byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mirror[from] = to
}

// FailOn makes every access touching reg fail with err. A nil err clears it.
func (m *Memory) FailOn(reg byte, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.fail, reg)
		return
	}
	m.fail[reg] = err
}

// Counts returns the number of read and write operations served.
func (m *Memory) Counts() (reads, writes int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reads, m.writes
}

func (m *Memory) ResetCounts() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reads, m.writes = 0, 0
}

func (m *Memory) String() string {
	return fmt.Sprintf("%s(addr=0x%02X)", m.name, m.addr)
}

func (m *Memory) ReadRegister(reg byte) (byte, error) {
	b, err := m.ReadRegisters(reg, 1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (m *Memory) WriteRegister(reg byte, value byte) error {
	return m.WriteRegisters(reg, []byte{value})
}

func (m *Memory) ReadRegisters(reg byte, count int) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	start := int(reg) * m.stride
	if count <= 0 || start+count > len(m.data) {
		return nil, m.failure("read", reg, fmt.Errorf("invalid count %d", count))
	}
	if err := m.check("read", start, count); err != nil {
		return nil, err
	}
	m.reads++

	out := make([]byte, count)
	copy(out, m.data[start:start+count])
	return out, nil
}

func (m *Memory) WriteRegisters(reg byte, values []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	start := int(reg) * m.stride
	if len(values) == 0 || start+len(values) > len(m.data) {
		return m.failure("write", reg, fmt.Errorf("invalid length %d", len(values)))
	}
	if err := m.check("write", start, len(values)); err != nil {
		return err
	}
	m.writes++

	for i, v := range values {
		pos := start + i
		m.data[pos] = v
		if to, ok := m.mirror[byte(pos/m.stride)]; ok {
			m.data[int(to)*m.stride+pos%m.stride] = v
		}
	}
	return nil
}

func (m *Memory) check(op string, start, count int) error {
	for pos := start; pos < start+count; pos++ {
		reg := byte(pos / m.stride)
		if err, ok := m.fail[reg]; ok {
			return m.failure(op, reg, err)
		}
	}
	return nil
}

func (m *Memory) failure(op string, reg byte, err error) error {
	return &types.TransportError{Op: op, Bus: m.name, Addr: m.addr, Register: reg, Err: err}
}
