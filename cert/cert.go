package cert

import (
	"bytes"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/Barba02/TALight/errs"
)

// GenerateCA creates a self-signed CA and writes its certificate PEM to
// dir/ca.crt. The key is returned only, never written.
func GenerateCA(subject *pkix.Name, dir string) (*x509.Certificate, *rsa.PrivateKey, error) {
	caCert := &x509.Certificate{
		SerialNumber:          big.NewInt(time.Now().Unix()),
		Subject:               *subject,
		NotBefore:             time.Now(),
		NotAfter:              time.Now().AddDate(10, 0, 0),
		IsCA:                  true,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageClientAuth, x509.ExtKeyUsageServerAuth},
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		BasicConstraintsValid: true,
	}

	caKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, nil, errs.WithStack(err)
	}

	caBytes, err := x509.CreateCertificate(rand.Reader, caCert, caCert, &caKey.PublicKey, caKey)
	if err != nil {
		return nil, nil, errs.WithStack(err)
	}

	if err := writePEM(filepath.Join(dir, "ca.crt"), "CERTIFICATE", caBytes); err != nil {
		return nil, nil, err
	}

	return caCert, caKey, nil
}

// GenerateCert creates a CA-signed leaf certificate for the given hosts
// (IP addresses or DNS names) and writes dir/<name>.crt and dir/<name>.key.
func GenerateCert(caCert *x509.Certificate, caKey *rsa.PrivateKey, name string, hosts []string, dir string) error {
	cert := &x509.Certificate{
		SerialNumber: big.NewInt(time.Now().UnixNano()),
		Subject:      pkix.Name{CommonName: name},
		NotBefore:    time.Now(),
		NotAfter:     time.Now().AddDate(10, 0, 0),
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageClientAuth, x509.ExtKeyUsageServerAuth},
		KeyUsage:     x509.KeyUsageDigitalSignature,
	}

	for _, host := range hosts {
		if ip := net.ParseIP(host); ip != nil {
			cert.IPAddresses = append(cert.IPAddresses, ip)
		} else {
			cert.DNSNames = append(cert.DNSNames, host)
		}
	}

	certKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return errs.WithStack(err)
	}

	certBytes, err := x509.CreateCertificate(rand.Reader, cert, caCert, &certKey.PublicKey, caKey)
	if err != nil {
		return errs.WithStack(err)
	}

	if err := writePEM(filepath.Join(dir, name+".crt"), "CERTIFICATE", certBytes); err != nil {
		return err
	}

	return writePEM(filepath.Join(dir, name+".key"), "RSA PRIVATE KEY", x509.MarshalPKCS1PrivateKey(certKey))
}

// Ensure generates dir/<name>.crt and dir/<name>.key (plus dir/ca.crt) when
// either is missing. Existing files are left alone.
func Ensure(name string, hosts []string, dir string) (certFile, keyFile string, err error) {
	certFile = filepath.Join(dir, name+".crt")
	keyFile = filepath.Join(dir, name+".key")

	_, certErr := os.Stat(certFile)
	_, keyErr := os.Stat(keyFile)
	if certErr == nil && keyErr == nil {
		return certFile, keyFile, nil
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", "", errs.WithStack(err)
	}

	caCert, caKey, err := GenerateCA(&pkix.Name{CommonName: name + " CA"}, dir)
	if err != nil {
		return "", "", err
	}

	if err := GenerateCert(caCert, caKey, name, hosts, dir); err != nil {
		return "", "", err
	}

	return certFile, keyFile, nil
}

func writePEM(path, blockType string, der []byte) error {
	buf := new(bytes.Buffer)
	if err := pem.Encode(buf, &pem.Block{Type: blockType, Bytes: der}); err != nil {
		return errs.WithStack(err)
	}

	if err := os.WriteFile(path, buf.Bytes(), 0o600); err != nil {
		return errs.WithStack(err)
	}

	return nil
}
