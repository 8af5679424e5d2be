package fiscal

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strconv"
	"time"

	"gitlab.com/distributed_lab/logan/v3/errors"
)

// ModelNFe is the document model for a standard NF-e.
const ModelNFe = "55"

// ufCodes maps a state (UF) abbreviation to its 2-digit IBGE code. The code
// is the leading segment of the 44-digit access key.
var ufCodes = map[string]string{
	"RO": "11", "AC": "12", "AM": "13", "RR": "14", "PA": "15",
	"AP": "16", "TO": "17", "MA": "21", "PI": "22", "CE": "23",
	"RN": "24", "PB": "25", "PE": "26", "AL": "27", "SE": "28",
	"BA": "29", "MG": "31", "ES": "32", "RJ": "33", "SP": "35",
	"PR": "41", "SC": "42", "RS": "43", "MS": "50", "MT": "51",
	"GO": "52", "DF": "53",
}

// UFCode returns the IBGE code for a UF abbreviation.
func UFCode(uf string) (string, bool) {
	code, ok := ufCodes[uf]
	return code, ok
}

// KeyParts holds every segment of an NFe access key except the check digit.
type KeyParts struct {
	UF           string    // state abbreviation, e.g. "SP"
	IssuedAt     time.Time // source of the YYMM segment
	CNPJ         string    // issuer CNPJ, punctuation allowed
	Model        string    // 2-digit document model, usually ModelNFe
	Series       int       // document series, zero-padded to 3
	Number       int       // document number, zero-padded to 9
	EmissionType int       // tpEmis, 1 = normal
	Code         int       // cNF, 8-digit numeric code
}

// BuildAccessKey assembles the 44-digit access key: UF(2) YYMM(4) CNPJ(14)
// model(2) series(3) number(9) tpEmis(1) cNF(8) + mod-11 check digit.
func BuildAccessKey(p KeyParts) (string, error) {
	ufCode, ok := UFCode(p.UF)
	if !ok {
		return "", errors.New(fmt.Sprintf("unknown UF %q", p.UF))
	}

	cnpj := OnlyDigits(p.CNPJ)
	if len(cnpj) != 14 {
		return "", errors.New("issuer CNPJ must have 14 digits")
	}

	model := p.Model
	if model == "" {
		model = ModelNFe
	}
	if len(model) != 2 {
		return "", errors.New("document model must have 2 digits")
	}

	if p.Number <= 0 || p.Number > 999999999 {
		return "", errors.New("document number out of range")
	}
	if p.Series < 0 || p.Series > 999 {
		return "", errors.New("document series out of range")
	}
	if p.EmissionType < 1 || p.EmissionType > 9 {
		return "", errors.New("emission type out of range")
	}
	if p.Code < 0 || p.Code > 99999999 {
		return "", errors.New("numeric code out of range")
	}

	prefix := fmt.Sprintf(
		"%s%s%s%s%03d%09d%d%08d",
		ufCode,
		p.IssuedAt.Format("0601"),
		cnpj,
		model,
		p.Series,
		p.Number,
		p.EmissionType,
		p.Code,
	)

	dv, err := CheckDigit(prefix)
	if err != nil {
		return "", err
	}

	return prefix + strconv.Itoa(dv), nil
}

// CheckDigit computes the modulo-11 check digit over a 43-digit prefix.
// Weights cycle 2,3,4,5,6,7,8,9 starting from the rightmost digit; a
// remainder below 2 yields 0, otherwise 11 minus the remainder. SEFAZ
// rejects keys whose check digit deviates from this exact scheme.
func CheckDigit(prefix string) (int, error) {
	if len(prefix) != 43 {
		return 0, errors.New("access key prefix must have 43 digits")
	}

	sum := 0
	weight := 2
	for i := len(prefix) - 1; i >= 0; i-- {
		c := prefix[i]
		if c < '0' || c > '9' {
			return 0, errors.New("access key prefix must be numeric")
		}
		sum += int(c-'0') * weight
		weight++
		if weight > 9 {
			weight = 2
		}
	}

	rest := sum % 11
	if rest < 2 {
		return 0, nil
	}
	return 11 - rest, nil
}

// ValidateAccessKey reports whether a 44-digit key is numeric and carries a
// correct check digit.
func ValidateAccessKey(key string) bool {
	if len(key) != 44 {
		return false
	}
	dv, err := CheckDigit(key[:43])
	if err != nil {
		return false
	}
	return int(key[43]-'0') == dv
}

// RandomCode draws the 8-digit cNF segment. Callers that need deterministic
// keys inject the code through KeyParts instead.
func RandomCode() (int, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(100000000))
	if err != nil {
		return 0, errors.Wrap(err, "failed to draw numeric code")
	}
	return int(n.Int64()), nil
}
