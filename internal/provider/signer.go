package provider

import (
	"crypto/md5"
	"encoding/hex"
	"net/url"
	"strconv"
	"time"
)

// Signer produces the per-request credentials the provider requires:
// apikey, ts and hash = md5(ts + privateKey + publicKey).
type Signer struct {
	PublicKey  string
	PrivateKey string
}

// Sign returns the query parameters authenticating a request made at now.
func (s Signer) Sign(now time.Time) url.Values {
	ts := strconv.FormatInt(now.UnixMilli(), 10)
	sum := md5.Sum([]byte(ts + s.PrivateKey + s.PublicKey))
	return url.Values{
		"apikey": {s.PublicKey},
		"ts":     {ts},
		"hash":   {hex.EncodeToString(sum[:])},
	}
}
