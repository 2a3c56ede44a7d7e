package bytecode

// Word is one element of an instruction buffer: either a control word (an
// encoded opcode+modes) or an operand word. The original source unions a
// size_t and a void*; since Go has no safe pointer-sized union, operand
// words here are always plain integers — register indices, stack offsets,
// or indices into the owning Function's constants table (see
// internal/value.Function.Constants) for modes that originally carried a
// pointer.
type Word int64

// EncodeControl packs an opcode and its two operand modes into one Word,
// the Go equivalent of the original source's single control byte with
// INS_HL/INS_HH mode bits in its high nibble.
func EncodeControl(op OpCode, hl, hh Mode) Word {
	return Word(op) | Word(hl)<<8 | Word(hh)<<10
}

// DecodeControl is the inverse of EncodeControl.
func DecodeControl(w Word) (op OpCode, hl, hh Mode) {
	op = OpCode(w & 0xFF)
	hl = Mode((w >> 8) & 0x3)
	hh = Mode((w >> 10) & 0x3)
	return
}

// Buffer is a growable instruction buffer (the original source's
// instruction_buffer): a flat sequence of control and operand words.
type Buffer struct {
	Words []Word
}

// NewBuffer returns an empty instruction buffer.
func NewBuffer() *Buffer { return &Buffer{} }

// Emit appends a control word (op + up to two operand modes) and returns its
// index, so callers (the function compiler) can back-patch jump targets.
func (b *Buffer) Emit(op OpCode, hl, hh Mode) int {
	idx := len(b.Words)
	b.Words = append(b.Words, EncodeControl(op, hl, hh))
	return idx
}

// EmitOperand appends a plain operand word.
func (b *Buffer) EmitOperand(v int64) int {
	idx := len(b.Words)
	b.Words = append(b.Words, Word(v))
	return idx
}

// Patch overwrites the word at idx, used for back-patching jump targets
// once a block's body length is known.
func (b *Buffer) Patch(idx int, v int64) {
	b.Words[idx] = Word(v)
}

// Len is the number of words currently in the buffer.
func (b *Buffer) Len() int { return len(b.Words) }
