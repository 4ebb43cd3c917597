package assist

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownLanguage is returned for an output language that is not offered.
var ErrUnknownLanguage = errors.New("unknown output language")

// Language is a supported output language.
type Language struct {
	Code   string
	Name   string
	Native string
	// GeneratePrompt asks for a 2,000-character document about the keyword.
	GeneratePrompt string
}

var languages = []Language{
	{Code: "ko", Name: "Korean", Native: "한국어", GeneratePrompt: "이 키워드에 대한 2,000자 길이의 문서를 한국어로 생성해줘."},
	{Code: "en", Name: "English", Native: "영어", GeneratePrompt: "Generate a 2,000-character document for this keyword in English."},
	{Code: "ja", Name: "Japanese", Native: "일본어", GeneratePrompt: "このキーワードについて2,000文字の日本語のドキュメントを作成してください。"},
	{Code: "zh", Name: "Chinese", Native: "중국어", GeneratePrompt: "请用中文生成关于这个关键词的2,000字文档。"},
	{Code: "ru", Name: "Russian", Native: "러시아어", GeneratePrompt: "Создайте документ на 2,000 символов по этому ключевому слову на русском языке."},
	{Code: "fr", Name: "French", Native: "프랑스어", GeneratePrompt: "Générez un document de 2,000 caractères pour ce mot-clé en français."},
	{Code: "de", Name: "German", Native: "독일어", GeneratePrompt: "Erstellen Sie ein 2,000 Zeichen langes Dokument für dieses Schlüsselwort auf Deutsch."},
	{Code: "it", Name: "Italian", Native: "이탈리아어", GeneratePrompt: "Genera un documento di 2,000 caratteri per questa parola chiave in italiano."},
}

// Languages lists the supported output languages in menu order.
func Languages() []Language {
	out := make([]Language, len(languages))
	copy(out, languages)
	return out
}

// LookupLanguage resolves a language by code, English name or Korean label.
func LookupLanguage(value string) (Language, error) {
	needle := strings.TrimSpace(value)
	for _, lang := range languages {
		if strings.EqualFold(needle, lang.Code) || strings.EqualFold(needle, lang.Name) || needle == lang.Native {
			return lang, nil
		}
	}
	return Language{}, fmt.Errorf("%w %q", ErrUnknownLanguage, value)
}

// EditInstruction is the system instruction for editing one chunk.
func (l Language) EditInstruction() string {
	return fmt.Sprintf("Revise the given document so that it fits the keyword or sentence written above it. Write the revised document in %s.", l.Name)
}

// SummarizeInstruction is the system instruction for summarizing one chunk.
func (l Language) SummarizeInstruction() string {
	return fmt.Sprintf("Summarize the given document focusing on the keyword or sentence written above it. Write the summary in %s.", l.Name)
}

// MergeInstruction is the system instruction for merging chunk summaries.
func (l Language) MergeInstruction() string {
	return fmt.Sprintf("Combine the following summaries into one coherent summary. Write the summary in %s.", l.Name)
}

func (l Language) String() string {
	return l.Name
}
