package vrouter

import "testing"

func TestCRC791ZeroSum(t *testing.T) {
	// RFC 1071 worked example data followed by a zeroed checksum slot:
	// once the checksum is written into the slot, the buffer sums to zero.
	buf := []byte{0x00, 0x01, 0xf2, 0x03, 0xf4, 0xf5, 0xf6, 0xf7, 0x00, 0x00}
	var c CRC791
	c.Write(buf)
	want := c.Sum16()

	buf2 := append([]byte{}, buf...)
	buf2[8], buf2[9] = byte(want>>8), byte(want)
	var c2 CRC791
	c2.Write(buf2)
	if got := c2.Sum16(); got != 0 && got != 0xffff {
		t.Errorf("checksum of self-checksummed buffer should be 0 (or equivalent 0xffff), got %#x", got)
	}
}

func TestCRC791OddLength(t *testing.T) {
	var c CRC791
	c.Write([]byte{0x01, 0x02, 0x03})
	var want CRC791
	want.AddUint16(0x0102)
	want.AddUint16(0x0300)
	if c.Sum16() != want.Sum16() {
		t.Errorf("odd-length write should zero-pad low byte: got %#x want %#x", c.Sum16(), want.Sum16())
	}
}

func TestValidatorAccumulate(t *testing.T) {
	var v Validator
	if v.HasError() {
		t.Fatal("fresh validator should have no error")
	}
	e1 := errTest("first")
	e2 := errTest("second")
	v.AddError(nil)
	v.AddError(e1)
	v.AddError(e2)
	if !v.HasError() {
		t.Fatal("expected accumulated errors")
	}
	if got := v.ErrPop(); got != error(e1) {
		t.Errorf("ErrPop should return errors FIFO, got %v", got)
	}
	if !v.HasError() {
		t.Fatal("second error should remain after first pop")
	}
	v.ResetErr()
	if v.HasError() {
		t.Fatal("ResetErr should clear accumulated errors")
	}
}

type errTest string

func (e errTest) Error() string { return string(e) }
