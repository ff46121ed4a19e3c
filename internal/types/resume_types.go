package types

// Link 简历中的外部链接(GitHub、个人主页等)
type Link struct {
	Label string `json:"label"`
	URL   string `json:"url"`
}

// PersonalInfo 候选人基本信息
type PersonalInfo struct {
	Name     string `json:"name"`
	Email    string `json:"email,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Location string `json:"location,omitempty"`
	Links    []Link `json:"links,omitempty"`
}

// WorkExperience 工作经历
type WorkExperience struct {
	Company      string   `json:"company"`
	Position     string   `json:"position"`
	StartDate    string   `json:"startDate,omitempty"`
	EndDate      string   `json:"endDate,omitempty"`
	Description  string   `json:"description,omitempty"`
	Highlights   []string `json:"highlights,omitempty"`
	Technologies []string `json:"technologies,omitempty"`
}

// Education 教育经历
type Education struct {
	Institution string `json:"institution"`
	Degree      string `json:"degree,omitempty"`
	Field       string `json:"field,omitempty"`
	StartDate   string `json:"startDate,omitempty"`
	EndDate     string `json:"endDate,omitempty"`
}

// Project 项目经历
type Project struct {
	Name         string   `json:"name"`
	Description  string   `json:"description,omitempty"`
	Technologies []string `json:"technologies,omitempty"`
	URL          string   `json:"url,omitempty"`
	Role         string   `json:"role,omitempty"`
}

// ResumeData 文档解析器产出的结构化简历，评估期间视为只读快照
type ResumeData struct {
	PersonalInfo   PersonalInfo     `json:"personalInfo"`
	Summary        string           `json:"summary,omitempty"`
	Skills         []string         `json:"skills"`
	WorkExperience []WorkExperience `json:"workExperience"`
	Education      []Education      `json:"education"`
	Projects       []Project        `json:"projects"`
	Certifications []string         `json:"certifications,omitempty"`
	Languages      []string         `json:"languages,omitempty"`
	RawText        string           `json:"rawText,omitempty"`
}

// SkillRequirements 岗位技能要求
type SkillRequirements struct {
	Required  []string `json:"required"`
	Preferred []string `json:"preferred"`
}

// ExperienceRequirement 岗位经验要求
type ExperienceRequirement struct {
	MinYears       int      `json:"minYears"`
	RequiredFields []string `json:"requiredFields,omitempty"`
}

// JobRequirement 岗位要求
type JobRequirement struct {
	Title      string                `json:"title"`
	Level      string                `json:"level,omitempty"`
	Skills     SkillRequirements     `json:"skills"`
	Experience ExperienceRequirement `json:"experience"`
}

// ParseResult 文档解析结果，Error 非空表示可预期的用户侧错误
type ParseResult struct {
	Data  *ResumeData `json:"data,omitempty"`
	Error string      `json:"error,omitempty"`
}
