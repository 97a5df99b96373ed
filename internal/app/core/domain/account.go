package domain

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"hash/crc32"
)

// Identity 呼叫者 / 使用者的身分，以文字形式表示
// 同時作為餘額 Map 的 key 以及白名單比對的依據
type Identity string

// AnonymousIdentity 未帶身分的呼叫者
const AnonymousIdentity Identity = "2vxsx-fae"

func (i Identity) String() string {
	return string(i)
}

// Subaccount 子帳戶選擇器 (32 bytes)
type Subaccount [32]byte

// DefaultSubaccount 全零的預設子帳戶，整個系統固定使用它
var DefaultSubaccount Subaccount

// MarshalText 以 hex 表示
func (s Subaccount) MarshalText() ([]byte, error) {
	return []byte(hex.EncodeToString(s[:])), nil
}

// UnmarshalText 解析 hex 字串
func (s *Subaccount) UnmarshalText(text []byte) error {
	return decodeFixedHex(text, s[:], "subaccount")
}

// AccountIdentifier 帳本上的帳戶 ID，由 Identity 與 Subaccount 推導
//
// 格式: crc32(hash) || hash，hash = sha224("\x0Aaccount-id" || owner || subaccount)
type AccountIdentifier [32]byte

var accountDomainSeparator = []byte("\x0Aaccount-id")

// NewAccountIdentifier 計算 owner 在指定子帳戶下的帳戶 ID
//
// 參數:
//
//	owner: 帳戶擁有者
//	sub: 子帳戶選擇器
//
// 回傳:
//
//	AccountIdentifier: 決定性的帳戶 ID
func NewAccountIdentifier(owner Identity, sub Subaccount) AccountIdentifier {
	h := sha256.New224()
	h.Write(accountDomainSeparator)
	h.Write([]byte(owner))
	h.Write(sub[:])
	sum := h.Sum(nil)

	var id AccountIdentifier
	binary.BigEndian.PutUint32(id[:4], crc32.ChecksumIEEE(sum))
	copy(id[4:], sum)
	return id
}

// DefaultAccount 回傳 owner 預設子帳戶的帳戶 ID
func DefaultAccount(owner Identity) AccountIdentifier {
	return NewAccountIdentifier(owner, DefaultSubaccount)
}

func (a AccountIdentifier) String() string {
	return hex.EncodeToString(a[:])
}

// MarshalText 以 hex 表示
func (a AccountIdentifier) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText 解析 hex 字串
func (a *AccountIdentifier) UnmarshalText(text []byte) error {
	return decodeFixedHex(text, a[:], "account identifier")
}

func decodeFixedHex(text []byte, dst []byte, what string) error {
	raw, err := hex.DecodeString(string(text))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", what, err)
	}
	if len(raw) != len(dst) {
		return fmt.Errorf("invalid %s: expected %d bytes, got %d", what, len(dst), len(raw))
	}
	copy(dst, raw)
	return nil
}
