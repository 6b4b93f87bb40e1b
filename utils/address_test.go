package utils

import (
	"testing"

	"github.com/btcsuite/btcutil/base58"
)

func TestAddressBytesToBase58(t *testing.T) {
	tests := []struct {
		name         string
		addressBytes []byte
		wantErr      bool
	}{
		{
			name:         "valid 20-byte address",
			addressBytes: make([]byte, 20),
			wantErr:      false,
		},
		{
			name:         "invalid length - 19 bytes",
			addressBytes: make([]byte, 19),
			wantErr:      true,
		},
		{
			name:         "invalid length - 21 bytes",
			addressBytes: make([]byte, 21),
			wantErr:      true,
		},
		{
			name:         "nil address",
			addressBytes: nil,
			wantErr:      true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := AddressBytesToBase58(tt.addressBytes)
			if (err != nil) != tt.wantErr {
				t.Errorf("AddressBytesToBase58() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && result == "" {
				t.Error("AddressBytesToBase58() result is empty")
			}
		})
	}
}

func TestParseAddress(t *testing.T) {
	hash := make([]byte, 20)
	for i := range hash {
		hash[i] = byte(i)
	}
	keyHash := base58.CheckEncode(hash, KeyHashVersion)
	scriptHash := base58.CheckEncode(hash, ScriptHashVersion)

	tests := []struct {
		name     string
		input    string
		wantKind AddressKind
		wantErr  bool
	}{
		{name: "key hash", input: keyHash, wantKind: KeyHash},
		{name: "script hash", input: scriptHash, wantKind: ScriptHash},
		{name: "surrounding whitespace", input: "  " + keyHash + " ", wantKind: KeyHash},
		{name: "empty string", input: "", wantErr: true},
		{name: "invalid characters", input: "0OIl", wantErr: true},
		{name: "unknown version", input: base58.CheckEncode(hash, 0x1C), wantErr: true},
		{name: "short payload", input: base58.CheckEncode(hash[:10], KeyHashVersion), wantErr: true},
		{name: "bad checksum", input: corruptLast(keyHash), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := ParseAddress(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseAddress() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if a.Kind != tt.wantKind {
				t.Errorf("Kind = %v, want %v", a.Kind, tt.wantKind)
			}
			if a.IsScriptHash() != (tt.wantKind == ScriptHash) {
				t.Errorf("IsScriptHash() = %v", a.IsScriptHash())
			}
		})
	}
}

func TestAddressRoundTrip(t *testing.T) {
	originalBytes := make([]byte, 20)
	for i := range originalBytes {
		originalBytes[i] = byte(i)
	}

	for _, kind := range []AddressKind{KeyHash, ScriptHash} {
		a, err := newAddress(kind, originalBytes)
		if err != nil {
			t.Fatalf("newAddress() failed: %v", err)
		}

		parsed, err := ParseAddress(a.String())
		if err != nil {
			t.Fatalf("ParseAddress() failed: %v", err)
		}
		if parsed != a {
			t.Errorf("Round trip: got %+v, want %+v", parsed, a)
		}
	}
}

func TestAddressHexToBase58(t *testing.T) {
	tests := []struct {
		name    string
		hexAddr string
		wantErr bool
	}{
		{name: "valid hex address with 0x prefix", hexAddr: "0x" + makeHexString(20)},
		{name: "valid hex address without 0x prefix", hexAddr: makeHexString(20)},
		{name: "invalid hex - wrong length", hexAddr: "0x1234", wantErr: true},
		{name: "invalid hex - invalid characters", hexAddr: "0xGGGGGGGGGGGGGGGGGGGGGGGGGGGGGGGGGGGGGGGG", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := AddressHexToBase58(tt.hexAddr)
			if (err != nil) != tt.wantErr {
				t.Errorf("AddressHexToBase58() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if tt.wantErr {
				return
			}
			back, err := ParseAddress(result)
			if err != nil {
				t.Fatalf("ParseAddress() failed: %v", err)
			}
			if back.Hex() != "0x"+makeHexString(20) {
				t.Errorf("Hex() = %s", back.Hex())
			}
		})
	}
}

func TestAddress_TextMarshaling(t *testing.T) {
	a, _ := NewKeyHashAddress(make([]byte, 20))
	text, err := a.MarshalText()
	if err != nil {
		t.Fatalf("MarshalText() failed: %v", err)
	}

	var b Address
	if err := b.UnmarshalText(text); err != nil {
		t.Fatalf("UnmarshalText() failed: %v", err)
	}
	if a != b {
		t.Errorf("got %v, want %v", b, a)
	}
	if err := b.UnmarshalText([]byte("nope")); err == nil {
		t.Error("UnmarshalText() should reject an invalid address")
	}
}

func TestSplitAddressList(t *testing.T) {
	got := SplitAddressList(" a, b,,c ,")
	want := []string{"a", "b", "c"}
	if len(got) != len(want) {
		t.Fatalf("SplitAddressList() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("SplitAddressList()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

// corruptLast 替换最后一个字符，破坏校验和
func corruptLast(s string) string {
	last := s[len(s)-1]
	repl := "z"
	if last == 'z' {
		repl = "y"
	}
	return s[:len(s)-1] + repl
}

// makeHexString 生成指定字节数的十六进制字符串
func makeHexString(bytes int) string {
	result := ""
	for i := 0; i < bytes; i++ {
		result += "01"
	}
	return result
}
