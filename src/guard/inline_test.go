package guard

import (
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type email string

func TestInline(t *testing.T) {
	name := "bob"

	testCases := []struct {
		name      string
		statement string
		bindings  []interface{}
		opts      InlineOptions
		want      string
	}{
		{
			"No placeholders ignores bindings",
			"select * from users",
			[]interface{}{1, "a"},
			InlineOptions{},
			"select * from users",
		},
		{
			"Integer and string",
			"select * from users where id = ? and email = ?",
			[]interface{}{42, "a@b.c"},
			InlineOptions{},
			"select * from users where id = 42 and email = 'a@b.c'",
		},
		{
			"Null renders unquoted",
			"select * from users where deleted_at is ?",
			[]interface{}{nil},
			InlineOptions{},
			"select * from users where deleted_at is null",
		},
		{
			"Floats and booleans use default text form",
			"select * from t where a = ? and b = ?",
			[]interface{}{1.5, true},
			InlineOptions{},
			"select * from t where a = 1.5 and b = true",
		},
		{
			"Embedded quote is not escaped",
			"select * from users where name = ?",
			[]interface{}{"O'Brien"},
			InlineOptions{},
			"select * from users where name = 'O'Brien'",
		},
		{
			"Embedded quote escaped when asked",
			"select * from users where name = ?",
			[]interface{}{"O'Brien"},
			InlineOptions{EscapeQuotes: true},
			"select * from users where name = 'O''Brien'",
		},
		{
			"Fewer bindings leave placeholders literal",
			"select * from t where a = ? and b = ?",
			[]interface{}{1},
			InlineOptions{},
			"select * from t where a = 1 and b = ?",
		},
		{
			"Surplus bindings ignored",
			"select * from t where a = ?",
			[]interface{}{1, 2, 3},
			InlineOptions{},
			"select * from t where a = 1",
		},
		{
			"Binding containing a placeholder is not re-scanned",
			"select * from t where a = ? and b = ?",
			[]interface{}{"?", 2},
			InlineOptions{},
			"select * from t where a = '?' and b = 2",
		},
		{
			"Byte slice renders like a string",
			"select * from t where a = ?",
			[]interface{}{[]byte("raw")},
			InlineOptions{},
			"select * from t where a = 'raw'",
		},
		{
			"Time renders as quoted datetime",
			"select * from t where created_at > ?",
			[]interface{}{time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC)},
			InlineOptions{},
			"select * from t where created_at > '2024-03-01 10:30:00'",
		},
		{
			"Valuer is resolved",
			"select * from t where a = ? and b = ?",
			[]interface{}{sql.NullString{String: "x", Valid: true}, sql.NullInt64{}},
			InlineOptions{},
			"select * from t where a = 'x' and b = null",
		},
		{
			"Nil valuer pointer renders null",
			"select * from t where a = ?",
			[]interface{}{(*sql.NullString)(nil)},
			InlineOptions{},
			"select * from t where a = null",
		},
		{
			"Nil string pointer renders null",
			"select * from t where c = ?",
			[]interface{}{(*string)(nil)},
			InlineOptions{},
			"select * from t where c = null",
		},
		{
			"String pointer is dereferenced",
			"select * from t where c = ?",
			[]interface{}{&name},
			InlineOptions{},
			"select * from t where c = 'bob'",
		},
		{
			"Named string type is quoted",
			"select * from users where email = ?",
			[]interface{}{email("a@b.c")},
			InlineOptions{},
			"select * from users where email = 'a@b.c'",
		},
		{
			"Sized integers render as numbers",
			"select * from t where a = ? and b = ?",
			[]interface{}{int32(7), uint8(3)},
			InlineOptions{},
			"select * from t where a = 7 and b = 3",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Inline(tc.statement, tc.bindings, tc.opts))
		})
	}
}

func TestInline_DoesNotMutateBindings(t *testing.T) {
	bindings := []interface{}{"a", nil, 3}
	original := append([]interface{}(nil), bindings...)

	got := Inline("select ? , ?, ?", bindings, InlineOptions{})

	assert.Equal(t, "select 'a' , null, 3", got)
	assert.Equal(t, original, bindings)
}

func TestInline_NullIsFourCharacterLiteral(t *testing.T) {
	assert.Equal(t, "null", Inline("?", []interface{}{nil}, InlineOptions{}))
	assert.Len(t, renderBinding(nil, InlineOptions{}), 4)
}
