// Command h2demo runs a standalone HTTP/2 server on top of the engine
// package, the way the teacher's demo/main.go and examples/autocert/main.go
// wire its own server type to a listener.
package main

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"flag"
	"fmt"
	"log"
	"math/big"
	"net"
	"time"

	"github.com/valyala/fasthttp"
	"golang.org/x/crypto/acme"
	"golang.org/x/crypto/acme/autocert"

	"github.com/h2x/engine"
	"github.com/h2x/engine/h2fasthttp"
)

var (
	listenAddr = flag.String("addr", ":8443", "address to listen on")
	hostName   = flag.String("host", "", "public hostname for autocert; empty uses a self-signed cert")
	certDir    = flag.String("certdir", "./certs", "autocert certificate cache directory")
)

func main() {
	flag.Parse()

	tlsConfig, err := buildTLSConfig(*hostName, *certDir)
	if err != nil {
		log.Fatalf("h2demo: %v", err)
	}

	ln, err := tls.Listen("tcp", *listenAddr, tlsConfig)
	if err != nil {
		log.Fatalf("h2demo: listen: %v", err)
	}
	log.Printf("h2demo: listening on %s", *listenAddr)

	handler := h2fasthttp.Handler{Inner: demoHandler}
	cfg := &engine.Config{
		IdleTimeout:  60 * time.Second,
		PingInterval: 30 * time.Second,
		Debug:        true,
	}

	for {
		conn, err := ln.Accept()
		if err != nil {
			log.Printf("h2demo: accept: %v", err)
			continue
		}
		go engine.NewConn(engine.NewTransport(conn), handler, cfg).Serve()
	}
}

func demoHandler(ctx *fasthttp.RequestCtx) {
	fmt.Fprintf(ctx, "hello from h2demo, you asked for %s\n", ctx.Path())
}

// buildTLSConfig mirrors the teacher's autocert example for a real
// hostname, falling back to a freshly generated self-signed certificate
// so the demo also runs with no DNS/ACME setup at all.
func buildTLSConfig(host, dir string) (*tls.Config, error) {
	if host == "" {
		cert, err := selfSignedCert()
		if err != nil {
			return nil, err
		}
		return &tls.Config{
			Certificates: []tls.Certificate{cert},
			NextProtos:   []string{"h2"},
		}, nil
	}

	m := &autocert.Manager{
		Prompt:     autocert.AcceptTOS,
		HostPolicy: autocert.HostWhitelist(host),
		Cache:      autocert.DirCache(dir),
	}
	return &tls.Config{
		GetCertificate: m.GetCertificate,
		NextProtos:     []string{"h2", acme.ALPNProto},
	}, nil
}

func selfSignedCert() (tls.Certificate, error) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return tls.Certificate{}, err
	}

	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "h2demo"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(365 * 24 * time.Hour),
		KeyUsage:     x509.KeyUsageKeyEncipherment | x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		DNSNames:     []string{"localhost"},
		IPAddresses:  []net.IP{net.IPv4(127, 0, 0, 1)},
	}

	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	if err != nil {
		return tls.Certificate{}, err
	}

	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})
	return tls.X509KeyPair(certPEM, keyPEM)
}
