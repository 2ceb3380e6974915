package main

import (
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gorilla/securecookie"
	"github.com/namsral/flag"
	"go.uber.org/zap"

	"spywords/registry"
	"spywords/web"

	cryptorand "crypto/rand"
	"math/rand"
)

func main() {
	var (
		addr   = flag.String("addr", ":8080", "HTTP service address")
		grace  = flag.Duration("grace_period", web.DefaultGracePeriod, "How long a disconnected player keeps their seat")
		keyDir = flag.String("key_dir", ".", "Directory holding (or receiving) the cookie signing keys")
		dev    = flag.Bool("dev", false, "Use a human-readable development logger")
	)
	flag.Parse()

	log, err := newLogger(*dev)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	sc, err := loadKeys(*keyDir)
	if err != nil {
		log.Fatal("failed to load cookie keys", zap.Error(err))
	}

	reg := registry.New(rand.New(cryptoRandSource{}))

	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-c
		reg.Close()
		log.Sync()
		os.Exit(1)
	}()

	srv := web.New(reg, sc, log, *grace)

	log.Info("server is running", zap.String("addr", *addr), zap.Duration("grace_period", *grace))
	if err := http.ListenAndServe(*addr, srv); err != nil {
		log.Fatal("ListenAndServe", zap.Error(err))
	}
}

func newLogger(dev bool) (*zap.Logger, error) {
	if dev {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// cryptoRandSource backs math/rand with crypto-quality bits, so board
// layouts and team picks aren't reproducible across runs.
type cryptoRandSource struct{}

func (cryptoRandSource) Int63() int64 {
	var buf [8]byte
	_, err := cryptorand.Read(buf[:])
	if err != nil {
		panic(err)
	}
	return int64(buf[0]) |
		int64(buf[1])<<8 |
		int64(buf[2])<<16 |
		int64(buf[3])<<24 |
		int64(buf[4])<<32 |
		int64(buf[5])<<40 |
		int64(buf[6])<<48 |
		int64(buf[7]&0x7f)<<56
}

func (cryptoRandSource) Seed(int64) {}

func loadKeys(dir string) (*securecookie.SecureCookie, error) {
	hashKey, err := loadOrGenKey(dir + "/hashKey")
	if err != nil {
		return nil, err
	}

	blockKey, err := loadOrGenKey(dir + "/blockKey")
	if err != nil {
		return nil, err
	}

	return securecookie.New(hashKey, blockKey), nil
}

func loadOrGenKey(name string) ([]byte, error) {
	f, err := os.ReadFile(name)
	if err == nil {
		return f, nil
	}

	dat := securecookie.GenerateRandomKey(32)
	if dat == nil {
		return nil, errors.New("failed to generate key")
	}

	if err := os.WriteFile(name, dat, 0600); err != nil {
		return nil, err
	}
	return dat, nil
}
