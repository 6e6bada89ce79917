package trial

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"

	"github.com/yavuzmtr/edefter-otomasyon-sub001/pkg/contracts/domain"
)

const sealInfo = "edefter trial seal v1"

// sealedRecord is the on-disk form of a trial record
type sealedRecord struct {
	Record domain.TrialRecord `json:"record"`
	MAC    string             `json:"mac"`
}

// sealer computes record MACs. The key is derived per hardware id so a
// record copied from another machine cannot be re-sealed by hand.
type sealer struct {
	secret []byte
}

func (s sealer) key(hardwareID string) ([]byte, error) {
	key := make([]byte, 32)
	r := hkdf.New(sha256.New, s.secret, []byte(hardwareID), []byte(sealInfo))
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, fmt.Errorf("derive seal key: %w", err)
	}
	return key, nil
}

func (s sealer) mac(rec domain.TrialRecord) ([]byte, error) {
	key, err := s.key(rec.HardwareID)
	if err != nil {
		return nil, err
	}
	body, err := json.Marshal(rec)
	if err != nil {
		return nil, err
	}
	h := hmac.New(sha256.New, key)
	h.Write(body)
	return h.Sum(nil), nil
}

func (s sealer) seal(rec domain.TrialRecord) (sealedRecord, error) {
	sum, err := s.mac(rec)
	if err != nil {
		return sealedRecord{}, err
	}
	return sealedRecord{Record: rec, MAC: hex.EncodeToString(sum)}, nil
}

func (s sealer) open(sr sealedRecord) (domain.TrialRecord, error) {
	want, err := s.mac(sr.Record)
	if err != nil {
		return domain.TrialRecord{}, err
	}
	got, err := hex.DecodeString(sr.MAC)
	if err != nil || !hmac.Equal(got, want) {
		return domain.TrialRecord{}, ErrTampered
	}
	return sr.Record, nil
}
