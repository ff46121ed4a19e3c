package parser

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"web3-resume-rag/internal/skills"
	"web3-resume-rag/internal/types"
)

type section int

const (
	sectionNone section = iota
	sectionPersonal
	sectionSummary
	sectionSkills
	sectionWork
	sectionEducation
	sectionProjects
	sectionCertifications
	sectionLanguages
)

// sectionTitles 章节标题，小写比较
var sectionTitles = map[string]section{
	"个人信息": sectionPersonal, "联系方式": sectionPersonal, "基本信息": sectionPersonal,
	"personal information": sectionPersonal, "contact": sectionPersonal,
	"个人简介": sectionSummary, "自我评价": sectionSummary, "个人总结": sectionSummary,
	"summary": sectionSummary, "profile": sectionSummary, "about": sectionSummary,
	"技能": sectionSkills, "专业技能": sectionSkills, "技术技能": sectionSkills, "核心技能": sectionSkills, "技术栈": sectionSkills,
	"skills": sectionSkills, "technical skills": sectionSkills, "core competencies": sectionSkills, "tech stack": sectionSkills,
	"工作经验": sectionWork, "工作经历": sectionWork,
	"experience": sectionWork, "work experience": sectionWork, "professional experience": sectionWork,
	"教育背景": sectionEducation, "教育经历": sectionEducation, "education": sectionEducation,
	"项目经验": sectionProjects, "项目经历": sectionProjects, "projects": sectionProjects, "project experience": sectionProjects,
	"证书": sectionCertifications, "资格证书": sectionCertifications, "certifications": sectionCertifications,
	"语言": sectionLanguages, "语言能力": sectionLanguages, "languages": sectionLanguages,
}

// standaloneOnly 只有单独成行时才是章节标题，"技术栈: ..." 是经历中的字段
var standaloneOnly = map[string]bool{"技术栈": true, "tech stack": true}

var (
	emailPattern = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)
	// 中国大陆手机号或北美格式号码
	phonePattern = regexp.MustCompile(`(?:\+?86)?1[3-9]\d{9}\b|(?:\+?1[-.\s]?)?\(?\d{3}\)?[-.\s]?\d{3}[-.\s]?\d{4}\b`)
	// 公司或学校名 + 起止时间
	dateRangePattern = regexp.MustCompile(`(?i)^(.+?)\s+(\d{4}[/.\-]\d{1,2})\s*(?:-|–|—|~|至|到|to)\s*(\d{4}[/.\-]\d{1,2}|现在|至今|present)`)
	techPattern      = regexp.MustCompile(`(?i)使用([^。，；,;]+)进行开发|技术栈[：:]\s*([^。；;]+)|使用的技术[：:]\s*([^。；;]+)|technolog(?:y|ies)[：:]\s*([^。；;]+)`)
	degreePattern    = regexp.MustCompile(`(?i)(学士|硕士|博士|专科|本科|Bachelor|Master|PhD)学?位?\s*[,，]\s*(.+)`)
	majorPattern     = regexp.MustCompile(`(?i)(?:专业|Major)[：:]\s*(.+)`)
	techSeparators   = regexp.MustCompile(`[,，、/\\]`)
)

var (
	positionKeywords = []string{"工程师", "开发", "程序员", "架构师", "Engineer", "Developer", "Architect"}
	degreeKeywords   = []string{"学士", "硕士", "博士", "专科", "本科", "Bachelor", "Master", "PhD", "Degree"}
	bulletPrefixes   = []string{"•", "-", "*", "·"}
)

// headingOf 判断一行是否为章节标题，行内带内容时一并返回
func headingOf(line string) (section, string, bool) {
	head, rest := line, ""
	if i := strings.IndexAny(line, ":："); i >= 0 {
		_, size := utf8.DecodeRuneInString(line[i:])
		head, rest = line[:i], strings.TrimSpace(line[i+size:])
	}
	head = strings.ToLower(strings.TrimSpace(strings.TrimLeft(head, "#【[ ")))
	head = strings.TrimRight(head, "】] ")
	s, ok := sectionTitles[head]
	if ok && rest != "" && standaloneOnly[head] {
		return sectionNone, "", false
	}
	return s, rest, ok
}

func trimBullet(line string) (string, bool) {
	for _, b := range bulletPrefixes {
		if strings.HasPrefix(line, b) {
			return strings.TrimSpace(strings.TrimPrefix(line, b)), true
		}
	}
	return line, false
}

func containsAnyOf(s string, words []string) bool {
	lower := strings.ToLower(s)
	for _, w := range words {
		if strings.Contains(lower, strings.ToLower(w)) {
			return true
		}
	}
	return false
}

// technologiesIn 从描述行中找出使用的技术
func technologiesIn(line string) []string {
	m := techPattern.FindStringSubmatch(line)
	if m == nil {
		return nil
	}
	var raw string
	for _, g := range m[1:] {
		if g != "" {
			raw = g
			break
		}
	}
	var out []string
	for _, t := range techSeparators.Split(raw, -1) {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// ParseText 按章节启发式解析纯文本简历
// 第一行非标题文本视为姓名；没有技能章节时从全文扫描已知技能
func (r *Parser) ParseText(text string) *types.ResumeData {
	resume := &types.ResumeData{
		Skills:         []string{},
		WorkExperience: []types.WorkExperience{},
		Education:      []types.Education{},
		Projects:       []types.Project{},
		RawText:        text,
	}

	lines := strings.Split(text, "\n")
	for i := range lines {
		lines[i] = strings.TrimSpace(lines[i])
	}

	if m := emailPattern.FindString(text); m != "" {
		resume.PersonalInfo.Email = m
	}
	for _, line := range lines {
		if m := phonePattern.FindString(line); m != "" {
			resume.PersonalInfo.Phone = strings.TrimSpace(m)
			break
		}
	}

	var (
		current      = sectionNone
		summary      []string
		skillLines   []string
		work         *types.WorkExperience
		edu          *types.Education
		project      *types.Project
		prevBlank    = true
		sawSkillHead bool
	)
	flushWork := func() {
		if work != nil {
			resume.WorkExperience = append(resume.WorkExperience, *work)
			work = nil
		}
	}
	flushEdu := func() {
		if edu != nil {
			resume.Education = append(resume.Education, *edu)
			edu = nil
		}
	}
	flushProject := func() {
		if project != nil {
			resume.Projects = append(resume.Projects, *project)
			project = nil
		}
	}

	for _, line := range lines {
		if line == "" {
			prevBlank = true
			continue
		}
		if s, rest, ok := headingOf(line); ok {
			flushWork()
			flushEdu()
			flushProject()
			current = s
			if s == sectionSkills {
				sawSkillHead = true
			}
			prevBlank = true
			if rest == "" {
				continue
			}
			line = rest
		}

		if resume.PersonalInfo.Name == "" && current == sectionNone {
			resume.PersonalInfo.Name = nameFrom(line)
		}

		switch current {
		case sectionSummary:
			summary = append(summary, line)
		case sectionSkills:
			skillLines = append(skillLines, line)
		case sectionWork:
			work = workLine(work, line, flushWork)
		case sectionEducation:
			edu = educationLine(edu, line, flushEdu)
		case sectionProjects:
			project = projectLine(project, line, prevBlank, flushProject)
		case sectionCertifications:
			resume.Certifications = append(resume.Certifications, skills.SplitItems(line)...)
		case sectionLanguages:
			resume.Languages = append(resume.Languages, skills.SplitItems(line)...)
		}
		prevBlank = false
	}
	flushWork()
	flushEdu()
	flushProject()

	resume.Summary = strings.Join(summary, "\n")
	if sawSkillHead {
		resume.Skills = dedupe(splitSkillLines(skillLines))
	} else {
		resume.Skills = r.extractor.ExtractCandidates(text)
	}
	return resume
}

// nameFrom 去掉"姓名:"前缀
func nameFrom(line string) string {
	for _, prefix := range []string{"姓名：", "姓名:", "Name:", "name:"} {
		if strings.HasPrefix(line, prefix) {
			return strings.TrimSpace(strings.TrimPrefix(line, prefix))
		}
	}
	return line
}

func splitSkillLines(lines []string) []string {
	var out []string
	for _, line := range lines {
		out = append(out, skills.SplitItems(line)...)
	}
	return out
}

func workLine(work *types.WorkExperience, line string, flush func()) *types.WorkExperience {
	if m := dateRangePattern.FindStringSubmatch(line); m != nil {
		flush()
		return &types.WorkExperience{
			Company:   strings.TrimSpace(m[1]),
			StartDate: m[2],
			EndDate:   strings.TrimSpace(m[3]),
		}
	}
	if work == nil {
		return nil
	}
	if work.Position == "" && work.Description == "" && len(work.Highlights) == 0 && containsAnyOf(line, positionKeywords) {
		work.Position = line
		return work
	}
	if item, ok := trimBullet(line); ok {
		work.Highlights = append(work.Highlights, item)
	} else if work.Description == "" {
		work.Description = line
	} else {
		work.Description += "\n" + line
	}
	work.Technologies = append(work.Technologies, technologiesIn(line)...)
	return work
}

func educationLine(edu *types.Education, line string, flush func()) *types.Education {
	if m := dateRangePattern.FindStringSubmatch(line); m != nil {
		flush()
		return &types.Education{
			Institution: strings.TrimSpace(m[1]),
			StartDate:   m[2],
			EndDate:     strings.TrimSpace(m[3]),
		}
	}
	if edu == nil {
		return nil
	}
	switch {
	case edu.Degree == "" && containsAnyOf(line, degreeKeywords):
		if m := degreePattern.FindStringSubmatch(line); m != nil {
			edu.Degree = strings.TrimSpace(m[1])
			edu.Field = strings.TrimSpace(m[2])
		} else {
			edu.Degree = line
		}
	case edu.Field == "":
		if m := majorPattern.FindStringSubmatch(line); m != nil {
			edu.Field = strings.TrimSpace(m[1])
		} else if strings.Contains(line, "专业") || strings.Contains(strings.ToLower(line), "major") {
			edu.Field = line
		}
	}
	return edu
}

// projectLine 空行或章节开头之后的非列表行开始一个新项目
func projectLine(project *types.Project, line string, prevBlank bool, flush func()) *types.Project {
	item, bullet := trimBullet(line)
	if techs := technologiesIn(line); len(techs) > 0 && project != nil {
		project.Technologies = append(project.Technologies, techs...)
		return project
	}
	if project == nil || (prevBlank && !bullet) {
		flush()
		name := line
		if m := dateRangePattern.FindStringSubmatch(line); m != nil {
			name = strings.TrimSpace(m[1])
		}
		return &types.Project{Name: name}
	}
	if project.Description == "" {
		project.Description = item
	} else {
		project.Description += "\n" + item
	}
	return project
}

func dedupe(items []string) []string {
	seen := make(map[string]struct{}, len(items))
	out := make([]string, 0, len(items))
	for _, it := range items {
		if _, ok := seen[it]; ok {
			continue
		}
		seen[it] = struct{}{}
		out = append(out, it)
	}
	return out
}
