package extraction

import "strings"

// DefaultCategory is assigned when no keyword matches.
const DefaultCategory = "기타"

type categoryRule struct {
	category string
	keywords []string
}

// Rules are checked in order; more specific brands come before generic words
// ("이마트24" is a convenience store, "이마트" a grocery).
var categoryRules = []categoryRule{
	{"편의점", []string{"gs25", "cu ", "씨유", "세븐일레븐", "이마트24", "미니스톱", "7-eleven"}},
	{"카페", []string{"스타벅스", "starbucks", "커피", "coffee", "카페", "cafe", "이디야", "투썸", "빽다방", "메가엠지씨"}},
	{"식비", []string{"배달의민족", "배민", "요기요", "쿠팡이츠", "맥도날드", "버거", "burger", "치킨", "피자", "pizza", "김밥", "식당", "restaurant", "분식", "국밥", "whole foods"}},
	{"마트", []string{"이마트", "홈플러스", "롯데마트", "코스트코", "costco", "마트", "market", "grocery"}},
	{"교통", []string{"택시", "taxi", "uber", "카카오t", "버스", "지하철", "코레일", "ktx", "주유", "오일", "고속도로", "티머니"}},
	{"쇼핑", []string{"쿠팡", "coupang", "11번가", "g마켓", "옥션", "무신사", "올리브영", "다이소", "백화점", "amazon"}},
	{"의료", []string{"병원", "의원", "약국", "치과", "한의원", "pharmacy"}},
	{"통신", []string{"skt", "sk텔레콤", "kt ", "lg u+", "lgu+", "통신"}},
	{"구독", []string{"넷플릭스", "netflix", "유튜브", "youtube", "멜론", "spotify", "스포티파이", "디즈니"}},
}

// Categorize assigns a spending category from the store name and, failing
// that, from the full message body.
func Categorize(store, body string) string {
	for _, text := range []string{store, body} {
		if text == "" {
			continue
		}
		lower := strings.ToLower(text) + " "
		for _, rule := range categoryRules {
			for _, kw := range rule.keywords {
				if strings.Contains(lower, kw) {
					return rule.category
				}
			}
		}
	}
	return DefaultCategory
}
