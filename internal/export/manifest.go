package export

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"time"

	"rekordboxport/core/auth"

	"github.com/golang-jwt/jwt/v5"
)

// ManifestClaims summarizes one export run into a small, independently
// verifiable claims object, signed into export-manifest.jwt alongside
// export.pdb.
type ManifestClaims struct {
	jwt.RegisteredClaims
	SessionID     string `json:"session_id"`
	TrackCount    int    `json:"track_count"`
	PlaylistCount int    `json:"playlist_count"`
	PDBSizeBytes  int64  `json:"pdb_size_bytes"`
	AudioListHash string `json:"audio_list_hash"`
}

// hashAudioList fingerprints the set of exported audio paths so a verifier
// can confirm the manifest describes this exact track list.
func hashAudioList(paths []string) string {
	h := sha256.New()
	for _, p := range paths {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// BuildManifestClaims assembles the claims for one completed export.
func BuildManifestClaims(sessionID string, trackCount, playlistCount int, pdbSizeBytes int64, audioPaths []string) ManifestClaims {
	now := time.Now()
	return ManifestClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt: jwt.NewNumericDate(now),
			Subject:  sessionID,
		},
		SessionID:     sessionID,
		TrackCount:    trackCount,
		PlaylistCount: playlistCount,
		PDBSizeBytes:  pdbSizeBytes,
		AudioListHash: hashAudioList(audioPaths),
	}
}

// WriteManifest signs claims with signingKey (HS256) and writes the token
// to path.
func WriteManifest(path string, claims ManifestClaims, signingKey string) error {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(signingKey))
	if err != nil {
		return fmt.Errorf("sign manifest: %w", err)
	}
	if err := os.WriteFile(path, []byte(signed), 0o644); err != nil {
		return fmt.Errorf("write manifest %s: %w", path, err)
	}
	return nil
}

// VerifyManifest parses and validates a manifest written by WriteManifest.
func VerifyManifest(path string, signingKey string) (*ManifestClaims, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest %s: %w", path, err)
	}

	claims := &ManifestClaims{}
	token, err := jwt.ParseWithClaims(string(data), claims, func(*jwt.Token) (interface{}, error) {
		return []byte(signingKey), nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse manifest %s: %w", path, err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("manifest %s failed signature verification", path)
	}
	return claims, nil
}

// CheckHistoryAccess gates the `history` command behind an operator
// passphrase. An
// empty storedHash means the gate is disabled.
func CheckHistoryAccess(attempt, storedHash string) bool {
	if storedHash == "" {
		return true
	}
	return auth.CheckPasswordHash(attempt, storedHash)
}
