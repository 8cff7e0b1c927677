// Package prompt assembles the generation request for a feedback item from
// the item's own content, cached product context, and retrieved reference
// examples. Assembly is fully deterministic: identical inputs produce an
// identical prompt, byte for byte, which keeps generation reproducible in
// tests and audits.
package prompt

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/tbourn/go-feedback-responder/internal/domain"
)

// DefaultSystem is the system message sent with every completion.
const DefaultSystem = "You are a helpful assistant."

// DefaultTemplate is the user-prompt template applied when neither the
// configuration nor the settings store overrides it. Placeholders are
// substituted literally; unknown placeholders are left as-is.
const DefaultTemplate = "Ты — специалист поддержки маркетплейса. " +
	"Ответь вежливо и кратко. " +
	"Отвечай строго на русском. " +
	"Верни только текст ответа клиенту без вступлений и пояснений. " +
	"Имя клиента: {author_name}. " +
	"Текст клиента: {text}. Оценка: {rating}. " +
	"Плюсы: {pros}. Минусы: {cons}. Товар: {product_name}. " +
	"Название карточки: {product_title}. " +
	"Описание товара: {product_description}. " +
	"Характеристики: {product_benefits}. " +
	"{examples}"

// Vars holds one substitution set for a template render.
type Vars struct {
	AuthorName         string
	Text               string
	Rating             string
	Pros               string
	Cons               string
	ProductName        string
	ProductTitle       string
	ProductDescription string
	ProductBenefits    string
	Examples           string
}

// Render substitutes every placeholder of the template with its value.
func Render(template string, v Vars) string {
	r := strings.NewReplacer(
		"{author_name}", v.AuthorName,
		"{text}", v.Text,
		"{rating}", v.Rating,
		"{pros}", v.Pros,
		"{cons}", v.Cons,
		"{product_name}", v.ProductName,
		"{product_title}", v.ProductTitle,
		"{product_description}", v.ProductDescription,
		"{product_benefits}", v.ProductBenefits,
		"{examples}", v.Examples,
	)
	return r.Replace(template)
}

// ratingString renders a nullable rating for substitution.
func ratingString(r *int) string {
	if r == nil {
		return ""
	}
	return strconv.Itoa(*r)
}

// renderExample formats one reference example as a numbered block.
func renderExample(n int, ex domain.ReferenceExample) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Пример %d.\n", n)
	if ex.ProductName != "" {
		fmt.Fprintf(&b, "Товар: %s\n", ex.ProductName)
	}
	if ex.Rating != nil {
		fmt.Fprintf(&b, "Оценка: %d\n", *ex.Rating)
	}
	fmt.Fprintf(&b, "Отзыв: %s\nОтвет: %s\n", ex.FeedbackText, ex.ReplyText)
	return b.String()
}

// examplesHeader opens the examples block when at least one example fits.
const examplesHeader = "Примеры удачных ответов:\n"
