package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateKeyString(t *testing.T) {
	cu := NewCryptoUtils()

	key, err := cu.GenerateKeyString(24)
	assert.NoError(t, err)
	assert.Len(t, key, 48) // hex编码后长度翻倍

	other, err := cu.GenerateKeyString(24)
	assert.NoError(t, err)
	assert.NotEqual(t, key, other)

	// 非法长度回退到默认32字节
	key, err = cu.GenerateKeyString(0)
	assert.NoError(t, err)
	assert.Len(t, key, 64)
}

func TestSHA256Hash(t *testing.T) {
	cu := NewCryptoUtils()

	hash := cu.SHA256Hash("hello")
	assert.Len(t, hash, 64)
	assert.Equal(t, hash, cu.SHA256Hash("hello"))
	assert.NotEqual(t, hash, cu.SHA256Hash("world"))
}

func TestMaskEmail(t *testing.T) {
	cu := NewCryptoUtils()

	assert.Equal(t, "z***g@example.com", cu.MaskEmail("zhang@example.com"))
	assert.Equal(t, "a****e@test.com", cu.MaskEmail("abcdfe@test.com"))
	assert.Equal(t, "**@test.com", cu.MaskEmail("ab@test.com"))
	assert.Equal(t, "", cu.MaskEmail(""))
	// 无效格式原样返回
	assert.Equal(t, "not-an-email", cu.MaskEmail("not-an-email"))
}

func TestMaskPhone(t *testing.T) {
	cu := NewCryptoUtils()

	assert.Equal(t, "138****5678", cu.MaskPhone("13812345678"))
	assert.Equal(t, "123456", cu.MaskPhone("123456")) // 太短不处理
	assert.Equal(t, "", cu.MaskPhone(""))
}

func TestMaskIDCard(t *testing.T) {
	cu := NewCryptoUtils()

	assert.Equal(t, "110101********1234", cu.MaskIDCard("110101199001011234"))
	assert.Equal(t, "110101******123", cu.MaskIDCard("110101900101123"))
	assert.Equal(t, "12345", cu.MaskIDCard("12345")) // 非身份证长度不处理
}

func TestMaskBankCard(t *testing.T) {
	cu := NewCryptoUtils()

	assert.Equal(t, "6222********3456", cu.MaskBankCard("6222020012343456"))
	assert.Equal(t, "1234567", cu.MaskBankCard("1234567")) // 太短不处理
}

func TestMaskName(t *testing.T) {
	cu := NewCryptoUtils()

	assert.Equal(t, "李*", cu.MaskName("李明"))
	assert.Equal(t, "李*明", cu.MaskName("李小明"))
	assert.Equal(t, "欧**华", cu.MaskName("欧阳小华"))
	assert.Equal(t, "李", cu.MaskName("李"))
}

func TestMaskGeneral(t *testing.T) {
	cu := NewCryptoUtils()

	assert.Equal(t, "ab***gh", cu.MaskGeneral("abcdefgh", 2, 2))
	assert.Equal(t, "***", cu.MaskGeneral("abc", 2, 2)) // 长度不足全部掩码
	assert.Equal(t, "", cu.MaskGeneral("", 1, 1))
}

func TestDetectSensitiveType(t *testing.T) {
	cu := NewCryptoUtils()

	assert.Equal(t, MaskTypeEmail, cu.DetectSensitiveType("user@example.com"))
	assert.Equal(t, MaskTypePhone, cu.DetectSensitiveType("13812345678"))
	assert.Equal(t, MaskTypeIDCard, cu.DetectSensitiveType("110101199001011234"))
	assert.Equal(t, MaskTypeBankCard, cu.DetectSensitiveType("6222020012343456"))
	assert.Equal(t, "unknown", cu.DetectSensitiveType("普通文本"))
}

func TestAutoMask(t *testing.T) {
	cu := NewCryptoUtils()

	assert.Equal(t, "138****5678", cu.AutoMask("13812345678"))
	assert.Contains(t, cu.AutoMask("user@example.com"), "@example.com")
	// 未知类型默认保留首尾各1位
	assert.Equal(t, "h***o", cu.AutoMask("hello"))
}

func TestMaskValue(t *testing.T) {
	cu := NewCryptoUtils()

	assert.Equal(t, "李*明", cu.MaskValue("李小明", MaskTypeName))
	assert.Equal(t, "138****5678", cu.MaskValue("13812345678", MaskTypePhone))
	// 未指定类型走自动检测
	assert.Equal(t, "138****5678", cu.MaskValue("13812345678", ""))
}
