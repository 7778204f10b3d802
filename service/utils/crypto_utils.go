/*
 * @module service/utils/crypto_utils
 * @description 加密与脱敏工具，提供API密钥生成、哈希、敏感数据检测和脱敏功能
 * @architecture 工具层 - 无状态工具集
 * @documentReference ai_docs/ingestion_requirements.md
 * @stateFlow 无状态：明文 -> 脱敏规则 -> 掩码文本
 * @rules 脱敏不可逆；密钥生成使用安全随机数
 * @dependencies crypto/rand, crypto/sha256, encoding/hex
 * @refs service/transformation/cleaner.go, api/controllers/config_controller.go
 */

package utils

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
)

// 脱敏类型
const (
	MaskTypeEmail    = "email"
	MaskTypePhone    = "phone"
	MaskTypeIDCard   = "idcard"
	MaskTypeBankCard = "bankcard"
	MaskTypeName     = "name"
	MaskTypeAuto     = "auto"
)

var (
	emailRegex    = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	phoneRegex    = regexp.MustCompile(`^1[3-9]\d{9}$`)
	idCardRegex   = regexp.MustCompile(`^(\d{15}|\d{17}[\dXx])$`)
	bankCardRegex = regexp.MustCompile(`^\d{16,19}$`)
	nonDigitRegex = regexp.MustCompile(`\D`)
)

// CryptoUtils 加密与脱敏工具
type CryptoUtils struct{}

// NewCryptoUtils 创建工具实例
func NewCryptoUtils() *CryptoUtils {
	return &CryptoUtils{}
}

// GenerateKeyString 生成随机密钥字符串（hex编码）
func (cu *CryptoUtils) GenerateKeyString(length int) (string, error) {
	if length <= 0 {
		length = 32
	}
	key := make([]byte, length)
	if _, err := rand.Read(key); err != nil {
		return "", fmt.Errorf("生成密钥失败: %w", err)
	}
	return hex.EncodeToString(key), nil
}

// SHA256Hash SHA256哈希
func (cu *CryptoUtils) SHA256Hash(data string) string {
	sum := sha256.Sum256([]byte(data))
	return hex.EncodeToString(sum[:])
}

// MaskEmail 邮箱脱敏
func (cu *CryptoUtils) MaskEmail(email string) string {
	if email == "" {
		return ""
	}

	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return email // 无效邮箱格式，不处理
	}

	username := parts[0]
	domain := parts[1]

	if len(username) <= 2 {
		return strings.Repeat("*", len(username)) + "@" + domain
	}

	masked := string(username[0]) + strings.Repeat("*", len(username)-2) + string(username[len(username)-1])
	return masked + "@" + domain
}

// MaskPhone 手机号脱敏
func (cu *CryptoUtils) MaskPhone(phone string) string {
	if phone == "" {
		return ""
	}

	cleanPhone := nonDigitRegex.ReplaceAllString(phone, "")
	if len(cleanPhone) < 7 {
		return phone // 太短，不处理
	}

	if len(cleanPhone) == 11 {
		// 中国手机号格式：138****1234
		return cleanPhone[:3] + "****" + cleanPhone[7:]
	}

	// 其他格式：保留前3位和后4位
	start := cleanPhone[:3]
	end := cleanPhone[len(cleanPhone)-4:]
	middle := strings.Repeat("*", len(cleanPhone)-7)
	return start + middle + end
}

// MaskIDCard 身份证号脱敏
func (cu *CryptoUtils) MaskIDCard(idCard string) string {
	if len(idCard) == 18 {
		return idCard[:6] + "********" + idCard[14:]
	}
	if len(idCard) == 15 {
		return idCard[:6] + "******" + idCard[12:]
	}
	return idCard
}

// MaskBankCard 银行卡号脱敏
func (cu *CryptoUtils) MaskBankCard(cardNumber string) string {
	if cardNumber == "" {
		return ""
	}

	cleanCard := nonDigitRegex.ReplaceAllString(cardNumber, "")
	if len(cleanCard) < 8 {
		return cardNumber // 太短，不处理
	}

	start := cleanCard[:4]
	end := cleanCard[len(cleanCard)-4:]
	middle := strings.Repeat("*", len(cleanCard)-8)
	return start + middle + end
}

// MaskName 姓名脱敏
func (cu *CryptoUtils) MaskName(name string) string {
	runes := []rune(name)
	if len(runes) <= 1 {
		return name
	}

	if len(runes) == 2 {
		// 两个字符：李*
		return string(runes[0]) + "*"
	}

	// 多个字符：李*明 或 欧阳*华
	masked := make([]rune, len(runes))
	masked[0] = runes[0]
	masked[len(runes)-1] = runes[len(runes)-1]
	for i := 1; i < len(runes)-1; i++ {
		masked[i] = '*'
	}
	return string(masked)
}

// MaskGeneral 通用脱敏，保留首尾指定位数
func (cu *CryptoUtils) MaskGeneral(data string, keepStart, keepEnd int) string {
	if data == "" {
		return ""
	}

	runes := []rune(data)
	length := len(runes)

	if length <= keepStart+keepEnd {
		return strings.Repeat("*", length)
	}

	start := string(runes[:keepStart])
	end := string(runes[length-keepEnd:])
	middle := strings.Repeat("*", length-keepStart-keepEnd)
	return start + middle + end
}

// DetectSensitiveType 检测敏感信息类型
func (cu *CryptoUtils) DetectSensitiveType(data string) string {
	switch {
	case emailRegex.MatchString(data):
		return MaskTypeEmail
	case phoneRegex.MatchString(data):
		return MaskTypePhone
	case idCardRegex.MatchString(data):
		return MaskTypeIDCard
	case bankCardRegex.MatchString(data):
		return MaskTypeBankCard
	default:
		return "unknown"
	}
}

// AutoMask 检测类型后自动脱敏
func (cu *CryptoUtils) AutoMask(data string) string {
	switch cu.DetectSensitiveType(data) {
	case MaskTypeEmail:
		return cu.MaskEmail(data)
	case MaskTypePhone:
		return cu.MaskPhone(data)
	case MaskTypeIDCard:
		return cu.MaskIDCard(data)
	case MaskTypeBankCard:
		return cu.MaskBankCard(data)
	default:
		// 默认脱敏：保留前1位和后1位
		return cu.MaskGeneral(data, 1, 1)
	}
}

// MaskValue 按指定类型脱敏，未知类型回退到自动检测
func (cu *CryptoUtils) MaskValue(data, maskType string) string {
	switch maskType {
	case MaskTypeEmail:
		return cu.MaskEmail(data)
	case MaskTypePhone:
		return cu.MaskPhone(data)
	case MaskTypeIDCard:
		return cu.MaskIDCard(data)
	case MaskTypeBankCard:
		return cu.MaskBankCard(data)
	case MaskTypeName:
		return cu.MaskName(data)
	default:
		return cu.AutoMask(data)
	}
}
