package ops

import (
	"fmt"

	"github.com/gofcom/fcom/core"
	"github.com/gofcom/fcom/filters/crypto"
	"github.com/gofcom/fcom/filters/fsio"
	"github.com/gofcom/fcom/registry"
)

// CryptoParams carries the password for encrypt/decrypt/encryptverify,
// set on Cmd.Params by the caller before Build runs.
type CryptoParams struct {
	Password string
}

func cryptoPassword(c *core.Cmd) (string, error) {
	p, ok := c.Params.(CryptoParams)
	if !ok || p.Password == "" {
		return "", fmt.Errorf("ops: crypto: no password set")
	}
	return p.Password, nil
}

func hasherTemplate(name string, newHasher func() *crypto.Hasher) *core.PipelineTemplate {
	return &core.PipelineTemplate{
		Name: name,
		Help: name + " prints a checksum for each input file",
		Build: func(c *core.Cmd) (*core.Pipeline, error) {
			p := core.NewPipeline(c)
			p.Append("fsio.read", &fsio.FileReader{})
			p.Append("crypto."+name, newHasher())
			p.Append("ops.digestline", &DigestLine{})
			p.Append("fsio.stream", &fsio.StreamWriter{})
			return p, nil
		},
	}
}

// CryptoModule builds the "crypto" module: md5, sha256, crc32, hex,
// encrypt, decrypt, encryptverify.
func CryptoModule() (*registry.Module, error) {
	m := registry.NewModule("crypto")

	m.Add("md5", hasherTemplate("md5", crypto.NewMD5))
	m.Add("sha256", hasherTemplate("sha256", crypto.NewSHA256))
	m.Add("crc32", hasherTemplate("crc32", crypto.NewCRC32))

	m.Add("hex", &core.PipelineTemplate{
		Name: "hex",
		Help: "hex dumps each input file to stdout",
		Build: func(c *core.Cmd) (*core.Pipeline, error) {
			p := core.NewPipeline(c)
			p.Append("fsio.read", &fsio.FileReader{})
			p.Append("crypto.hex", &crypto.HexDumper{})
			p.Append("fsio.stream", &fsio.StreamWriter{})
			return p, nil
		},
	})

	m.Add("encrypt", &core.PipelineTemplate{
		Name: "encrypt",
		Help: "encrypts a file with AES-256-CFB under a password",
		Build: func(c *core.Cmd) (*core.Pipeline, error) {
			pw, err := cryptoPassword(c)
			if err != nil {
				return nil, err
			}
			p := core.NewPipeline(c)
			p.Append("fsio.read", &fsio.FileReader{})
			p.Append("crypto.encrypt", &crypto.Encrypt{Password: pw})
			p.Append("fsio.write", &fsio.FileWriter{})
			return p, nil
		},
	})

	m.Add("decrypt", &core.PipelineTemplate{
		Name: "decrypt",
		Help: "decrypts a file previously produced by encrypt",
		Build: func(c *core.Cmd) (*core.Pipeline, error) {
			pw, err := cryptoPassword(c)
			if err != nil {
				return nil, err
			}
			p := core.NewPipeline(c)
			p.Append("fsio.read", &fsio.FileReader{})
			p.Append("crypto.decrypt", &crypto.Decrypt{Password: pw})
			p.Append("fsio.write", &fsio.FileWriter{})
			return p, nil
		},
	})

	m.Add("encryptverify", &core.PipelineTemplate{
		Name: "encryptverify",
		Help: "encrypts a file and re-reads it to confirm the round trip",
		Build: func(c *core.Cmd) (*core.Pipeline, error) {
			pw, err := cryptoPassword(c)
			if err != nil {
				return nil, err
			}
			p := core.NewPipeline(c)
			p.Append("fsio.read", &fsio.FileReader{})
			p.Append("crypto.encryptverify", &crypto.EncryptVerify{Password: pw})
			return p, nil
		},
	})

	return m, nil
}
