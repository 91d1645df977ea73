package telemetry

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaskPII(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "masked name keeps amount and store",
			input: "KB국민카드1234승인\n홍*동님\n15,000원 일시불\n스타벅스강남점",
			want:  "KB국민카드1234승인\n***님\n15,000원 일시불\n스타벅스강남점",
		},
		{
			name:  "unmasked name",
			input: "김철수님 결제 5,000원",
			want:  "***님 결제 5,000원",
		},
		{
			name:  "phone number",
			input: "문의 010-1234-5678 승인 3,000원",
			want:  "문의 ***-****-**** 승인 3,000원",
		},
		{
			name:  "account number",
			input: "출금 123-456-789012 10,000원",
			want:  "출금 *** 10,000원",
		},
		{
			name:  "long digit run",
			input: "계좌 1234567890123 출금",
			want:  "계좌 *** 출금",
		},
		{
			name:  "name without honorific",
			input: "신한카드 김*수 8,900원",
			want:  "신한카드 *** 8,900원",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MaskPII(tt.input))
		})
	}
}
