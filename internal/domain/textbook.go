package domain

// Gdz ссылка на решебник, одна на (user_id, subject_id)
type Gdz struct {
	UserID      int64  `json:"user_id" db:"user_id"`
	SubjectID   int64  `json:"subject_id" db:"subject_id"`
	SubjectName string `json:"subject_name" db:"subject_name"`
	URL         string `json:"url" db:"url" validate:"required,url,startswith=http"`
}

// StudentBook учебник в объектном хранилище, одна на (user_id, subject_id)
type StudentBook struct {
	UserID      int64  `json:"user_id" db:"user_id"`
	SubjectID   int64  `json:"subject_id" db:"subject_id"`
	SubjectName string `json:"subject_name" db:"subject_name"`
	ObjectKey   string `json:"object_key" db:"object_key"`
}

// SettingDefinition описание настройки из каталога
type SettingDefinition struct {
	Key          string `json:"key" db:"key" validate:"required"`
	Title        string `json:"title" db:"title" validate:"required"`
	Description  string `json:"description" db:"description"`
	Category     string `json:"category" db:"category"`
	DefaultValue bool   `json:"default_value" db:"default_value"`
}

// Catalog декларативный каталог, грузится при старте
type Catalog struct {
	Settings []SettingDefinition       `json:"settings" validate:"dive"`
	Plans    []PremiumSubscriptionPlan `json:"plans"`
}
