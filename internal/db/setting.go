package db

import "time"

// Setting 存储站点级的键值对配置。
type Setting struct {
	ID        uint      `gorm:"primaryKey" json:"-"`
	Key       string    `gorm:"size:100;uniqueIndex;not null" json:"key"`
	Value     string    `gorm:"type:text;not null;default:''" json:"value"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName 自定义表名以保持命名一致。
func (Setting) TableName() string {
	return "settings"
}

// SettingKeyIntroduction 表示首页的自我介绍文案。
const SettingKeyIntroduction = "introduction"

// defaultSettings 在初始化时写入，仅当对应键不存在时生效。
var defaultSettings = map[string]string{
	SettingKeyIntroduction: "hi, i am neuralwired! i write about machine learning, deep learning, and other technical topics.",
}
