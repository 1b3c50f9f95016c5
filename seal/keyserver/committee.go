package keyserver

import (
	"crypto/cipher"
	"encoding/hex"
	"fmt"
	"os"
	"time"

	"go.dedis.ch/kyber/v3"
	"go.dedis.ch/sealbox/account"
	"go.dedis.ch/sealbox/ident"
	"golang.org/x/xerrors"
	"gopkg.in/yaml.v2"
)

// Member is the description of a key server in a committee file. The secret
// key is only present in the file of the node hosting the key servers.
type Member struct {
	ID        string `yaml:"id"`
	URL       string `yaml:"url,omitempty"`
	PublicKey string `yaml:"pubkey"`
	SecretKey string `yaml:"secret,omitempty"`
}

// Committee is the list of key servers of a threshold encryption service.
type Committee struct {
	Threshold int      `yaml:"threshold"`
	Members   []Member `yaml:"members"`
}

// NewCommittee generates n key pairs with a given threshold. The URL of each
// member is the base URL followed by the member path.
func NewCommittee(n, threshold int, baseURL string, stream cipher.Stream) (Committee, error) {
	if n <= 0 {
		return Committee{}, xerrors.Errorf("invalid committee size %d", n)
	}

	if threshold <= 0 || threshold > n {
		return Committee{}, xerrors.Errorf("threshold %d out of range [1, %d]", threshold, n)
	}

	committee := Committee{
		Threshold: threshold,
		Members:   make([]Member, n),
	}

	for i := range committee.Members {
		key := GenerateKey(stream)

		secret, err := key.Secret.MarshalBinary()
		if err != nil {
			return Committee{}, xerrors.Errorf("failed to marshal secret: %v", err)
		}

		public, err := key.Public.MarshalBinary()
		if err != nil {
			return Committee{}, xerrors.Errorf("failed to marshal public key: %v", err)
		}

		id := fmt.Sprintf("ks%d", i)

		member := Member{
			ID:        id,
			PublicKey: hex.EncodeToString(public),
			SecretKey: hex.EncodeToString(secret),
		}

		if baseURL != "" {
			member.URL = MemberURL(baseURL, id)
		}

		committee.Members[i] = member
	}

	return committee, nil
}

// MemberURL returns the URL of the key server mounted by a node at the base
// URL.
func MemberURL(baseURL, id string) string {
	return fmt.Sprintf("%s/keyservers/%s", baseURL, id)
}

// Public returns the committee without the secret keys.
func (c Committee) Public() Committee {
	members := make([]Member, len(c.Members))
	for i, m := range c.Members {
		m.SecretKey = ""
		members[i] = m
	}

	return Committee{Threshold: c.Threshold, Members: members}
}

// GetPublicKey returns the public key of the member.
func (m Member) GetPublicKey() (kyber.Point, error) {
	data, err := ident.DecodeHex(m.PublicKey)
	if err != nil {
		return nil, xerrors.Errorf("member %s: %v", m.ID, err)
	}

	return account.UnmarshalPublicKey(data)
}

// GetKey returns the key pair of the member. It fails if the secret key is not
// available.
func (m Member) GetKey() (Key, error) {
	if m.SecretKey == "" {
		return Key{}, xerrors.Errorf("member %s has no secret key", m.ID)
	}

	data, err := ident.DecodeHex(m.SecretKey)
	if err != nil {
		return Key{}, xerrors.Errorf("member %s: %v", m.ID, err)
	}

	secret := account.Suite().Scalar()

	err = secret.UnmarshalBinary(data)
	if err != nil {
		return Key{}, xerrors.Errorf("member %s: invalid secret: %v", m.ID, err)
	}

	public, err := m.GetPublicKey()
	if err != nil {
		return Key{}, err
	}

	if !account.Suite().Point().Mul(secret, nil).Equal(public) {
		return Key{}, xerrors.Errorf("member %s: secret does not match public key", m.ID)
	}

	return Key{Secret: secret, Public: public}, nil
}

// Clients returns the clients of the remote key servers of the committee.
func (c Committee) Clients(timeout time.Duration) ([]KeyServer, error) {
	servers := make([]KeyServer, len(c.Members))

	for i, m := range c.Members {
		if m.URL == "" {
			return nil, xerrors.Errorf("member %s has no URL", m.ID)
		}

		pubkey, err := m.GetPublicKey()
		if err != nil {
			return nil, err
		}

		servers[i] = NewClient(m.ID, m.URL, pubkey, timeout)
	}

	return servers, nil
}

// LoadCommittee reads the committee from the YAML file.
func LoadCommittee(path string) (Committee, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Committee{}, xerrors.Errorf("failed to read committee: %v", err)
	}

	var c Committee

	err = yaml.Unmarshal(data, &c)
	if err != nil {
		return Committee{}, xerrors.Errorf("failed to decode committee: %v", err)
	}

	return c, nil
}

// Save writes the committee in the YAML file. The file is readable only by
// the current user.
func (c Committee) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return xerrors.Errorf("failed to encode committee: %v", err)
	}

	err = os.WriteFile(path, data, 0600)
	if err != nil {
		return xerrors.Errorf("failed to write committee: %v", err)
	}

	return nil
}
