package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/md5"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"

	"github.com/gofcom/fcom/core"
)

// EncryptVerifyState is EncryptVerify's private state.
type EncryptVerifyState struct {
	out       *os.File
	stream    cipher.Stream
	iv        [ivSize]byte
	wroteIV   bool
	plainHash hash.Hash
	key       [32]byte
}

// EncryptVerify is the tail of a pipeline that both encrypts Cmd.In to
// Cmd.Output.Name and, once the input is exhausted, re-reads the
// destination file, decrypts it, and compares its MD5 against the
// plaintext's MD5 computed during the first pass — the "encrypt/verify
// pair that reads a file twice" contract from spec §4.6. A digest
// mismatch fails the pipeline rather than leaving a silently-corrupt
// output file in place.
type EncryptVerify struct {
	Password string
}

func (f *EncryptVerify) Open(c *core.Cmd) (any, error) {
	out, err := os.OpenFile(c.Output.Name, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("crypto: encryptverify: create %s: %w", c.Output.Name, err)
	}
	st := &EncryptVerifyState{out: out, plainHash: md5.New()}
	if _, err := rand.Read(st.iv[:]); err != nil {
		out.Close()
		return nil, fmt.Errorf("crypto: encryptverify: generate IV: %w", err)
	}
	st.key = sha256.Sum256([]byte(f.Password))
	block, err := aes.NewCipher(st.key[:])
	if err != nil {
		out.Close()
		return nil, fmt.Errorf("crypto: encryptverify: %w", err)
	}
	st.stream = cipher.NewCFBEncrypter(block, st.iv[:])
	return st, nil
}

func (f *EncryptVerify) Process(state any, c *core.Cmd) (core.Status, core.Mutation, error) {
	st := state.(*EncryptVerifyState)

	if !st.wroteIV {
		if _, err := st.out.Write(st.iv[:]); err != nil {
			return core.SysErr, core.NoMutation, fmt.Errorf("crypto: encryptverify: write IV: %w", err)
		}
		st.wroteIV = true
	}
	if len(c.In) > 0 {
		st.plainHash.Write(c.In)
		ciphertext := make([]byte, len(c.In))
		st.stream.XORKeyStream(ciphertext, c.In)
		if _, err := st.out.Write(ciphertext); err != nil {
			return core.SysErr, core.NoMutation, fmt.Errorf("crypto: encryptverify: write %s: %w", c.Output.Name, err)
		}
	}

	if !c.Input.Last {
		return core.More, core.NoMutation, nil
	}

	if err := st.out.Close(); err != nil {
		return core.SysErr, core.NoMutation, fmt.Errorf("crypto: encryptverify: close %s: %w", c.Output.Name, err)
	}
	st.out = nil

	got, err := rereadAndHash(c.Output.Name, st.key)
	if err != nil {
		return core.SysErr, core.NoMutation, err
	}
	want := hex.EncodeToString(st.plainHash.Sum(nil))
	if got != want {
		return core.Err, core.NoMutation, fmt.Errorf("crypto: encryptverify: digest mismatch after round-trip: got %s want %s", got, want)
	}
	c.Vars["hash.digest"] = want
	return core.Done, core.NoMutation, nil
}

func (f *EncryptVerify) Close(state any, c *core.Cmd) {
	st := state.(*EncryptVerifyState)
	if st.out != nil {
		st.out.Close()
	}
}

// rereadAndHash re-opens path, strips the leading IV, decrypts the
// remainder with key, and returns the hex MD5 of the recovered
// plaintext — the second, independent read of the destination file.
func rereadAndHash(path string, key [32]byte) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("crypto: encryptverify: reopen %s: %w", path, err)
	}
	defer f.Close()

	var iv [ivSize]byte
	if _, err := io.ReadFull(f, iv[:]); err != nil {
		return "", fmt.Errorf("crypto: encryptverify: read IV from %s: %w", path, err)
	}
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return "", fmt.Errorf("crypto: encryptverify: %w", err)
	}
	stream := cipher.NewCFBDecrypter(block, iv[:])

	h := md5.New()
	buf := make([]byte, 64*1024)
	for {
		n, rerr := f.Read(buf)
		if n > 0 {
			plain := make([]byte, n)
			stream.XORKeyStream(plain, buf[:n])
			h.Write(plain)
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return "", fmt.Errorf("crypto: encryptverify: re-read %s: %w", path, rerr)
		}
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
