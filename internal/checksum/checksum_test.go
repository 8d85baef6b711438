package checksum

import "testing"

func TestSum(t *testing.T) {
	// sha256("abc")
	want := "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"
	if got := Sum([]byte("abc")); got != want {
		t.Errorf("Sum = %s", got)
	}
}

func TestSource_IgnoresLineEndings(t *testing.T) {
	if Source("a;\r\nb;\r\n") != Source("a;\nb;\n") {
		t.Error("CRLF and LF sources should have the same checksum")
	}
	if Source("a;\n") == Source("b;\n") {
		t.Error("different sources share a checksum")
	}
}
