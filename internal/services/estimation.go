package services

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/tbourn/go-calorie-bot/internal/domain"
)

// Defaults applied when the model leaves a field out.
const (
	DefaultFoodName  = "ご飯"
	DefaultMacro     = "不明"
	DefaultReplyText = "美味しそう！✨"
)

// MaxMealCalorie bounds a single estimate. Larger values are not a meal and
// read as 0, like any other unusable calorie value.
const MaxMealCalorie = 100000

// estimationPrompt asks for one JSON object. The reply_text persona is the
// bot's "best friend Yuki" voice.
const estimationPrompt = `あなたは、ユーザー（20代女性）の「親友ユキ」で、管理栄養士の知識も持っています。
送られた食事の写真を見て、料理名・カロリー・三大栄養素を推定してください。

必ず次のキーを持つJSONオブジェクトだけを返してください。説明文やマークダウンは不要です。
{
  "food_name": "料理名（文字列）",
  "calorie": 推定カロリー（kcal、整数）,
  "carbs": "炭水化物（例: 45g）",
  "protein": "たんぱく質（例: 20g）",
  "fat": "脂質（例: 15g）",
  "reply_text": "ユキとしての返信"
}

reply_text のルール:
・タメ口で、ギャルっぽく明るく全肯定する。
・「わぁ！✨」「やば！🤤」などリアクションから入る。
・美容や健康の観点で褒める。
・敬語は禁止。2行程度の短文で。`

// ParseEstimation reads the model's JSON answer field by field. A missing or
// blank field takes its default; only a payload that is not a JSON object
// at all is an error.
func ParseEstimation(raw string) (domain.Estimation, error) {
	body := stripCodeFence(raw)
	if !gjson.Valid(body) {
		return domain.Estimation{}, fmt.Errorf("%w: response is not valid JSON", ErrParse)
	}
	doc := gjson.Parse(body)
	// Some models wrap the object in a one-element array.
	if doc.IsArray() {
		items := doc.Array()
		if len(items) == 0 {
			return domain.Estimation{}, fmt.Errorf("%w: empty array", ErrParse)
		}
		doc = items[0]
	}
	if !doc.IsObject() {
		return domain.Estimation{}, fmt.Errorf("%w: expected an object, got %s", ErrParse, doc.Type)
	}

	return domain.Estimation{
		FoodName:  stringField(doc, "food_name", DefaultFoodName),
		Calorie:   calorieField(doc),
		Carbs:     stringField(doc, "carbs", DefaultMacro),
		Protein:   stringField(doc, "protein", DefaultMacro),
		Fat:       stringField(doc, "fat", DefaultMacro),
		ReplyText: stringField(doc, "reply_text", DefaultReplyText),
	}, nil
}

func stringField(doc gjson.Result, key, def string) string {
	v := doc.Get(key)
	if !v.Exists() || v.Type == gjson.Null {
		return def
	}
	s := strings.TrimSpace(v.String())
	if s == "" {
		return def
	}
	return s
}

// calorieField accepts numbers and numeric strings ("650", "650kcal").
// Anything else, negative values and values above MaxMealCalorie read as 0.
func calorieField(doc gjson.Result) int {
	v := doc.Get("calorie")
	var f float64
	switch v.Type {
	case gjson.Number:
		f = v.Num
	case gjson.String:
		s := strings.TrimSpace(strings.ToLower(v.Str))
		s = strings.TrimSpace(strings.TrimSuffix(s, "kcal"))
		s = strings.ReplaceAll(s, ",", "")
		n, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0
		}
		f = n
	default:
		return 0
	}
	if math.IsNaN(f) || f <= 0 || f > MaxMealCalorie {
		return 0
	}
	return int(math.Round(f))
}

// stripCodeFence removes a surrounding ```json ... ``` block if present.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	} else {
		s = strings.TrimPrefix(s, "json")
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
