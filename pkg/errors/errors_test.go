package errors_test

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IUPAC-InChI/RInChI/pkg/errors"
)

// ─────────────────────────────────────────────────────────────────────────────
// New / Wrap
// ─────────────────────────────────────────────────────────────────────────────

func TestNew_FieldsAreSetCorrectly(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		code    errors.ErrorCode
		message string
	}{
		{"internal error", errors.ErrCodeInternal, "unexpected failure"},
		{"format", errors.ErrCodeFormat, "RInChI string must start with 'RInChI=1.00.1S/'"},
		{"validation", errors.ErrCodeValidation, "invalid InChI 'InChI=1S/X'"},
		{"precondition", errors.ErrCodePrecondition, "reaction is not empty"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			ae := errors.New(tc.code, tc.message)

			require.NotNil(t, ae)
			assert.Equal(t, tc.code, ae.Code)
			assert.Equal(t, tc.message, ae.Message)
			assert.Empty(t, ae.Detail)
			assert.Nil(t, ae.Cause)
			assert.NotEmpty(t, ae.Stack)
		})
	}
}

func TestError_Format(t *testing.T) {
	t.Parallel()

	ae := errors.New(errors.ErrCodeFormat, "bad tag")
	assert.Equal(t, "[RINCHI_001] bad tag", ae.Error())

	withDetail := ae.WithDetail("group 2")
	assert.Equal(t, "[RINCHI_001] bad tag: group 2", withDetail.Error())
	assert.Empty(t, ae.Detail, "WithDetail must not mutate the receiver")

	wrapped := errors.Wrap(fmt.Errorf("boom"), errors.ErrCodeDatabaseError, "insert failed")
	assert.Equal(t, "[DB_001] insert failed: boom", wrapped.Error())
}

func TestWrap_NilIsNil(t *testing.T) {
	t.Parallel()
	assert.Nil(t, errors.Wrap(nil, errors.ErrCodeInternal, "x"))
	assert.Nil(t, errors.Wrapf(nil, errors.ErrCodeInternal, "x %d", 1))
}

func TestWrap_UnknownKeepsOriginalCode(t *testing.T) {
	t.Parallel()

	inner := errors.NewValidationError("invalid InChI")
	outer := errors.Wrap(inner, errors.CodeUnknown, "loading reactants")

	assert.Equal(t, errors.ErrCodeValidation, outer.Code)
	assert.True(t, errors.IsValidation(outer))
	assert.Same(t, inner, stderrors.Unwrap(outer))
}

func TestIs_MatchesSentinelThroughWrap(t *testing.T) {
	t.Parallel()

	sentinel := errors.New(errors.ErrCodeCacheMiss, "cache miss")
	wrapped := fmt.Errorf("lookup: %w", errors.Wrap(sentinel, errors.ErrCodeCacheMiss, "key abc"))

	assert.True(t, stderrors.Is(wrapped, sentinel))
	assert.False(t, stderrors.Is(wrapped, errors.New(errors.ErrCodeCacheError, "cache miss")))
}

// ─────────────────────────────────────────────────────────────────────────────
// Kind predicates
// ─────────────────────────────────────────────────────────────────────────────

func TestKindPredicates(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name         string
		err          error
		format       bool
		validation   bool
		precondition bool
	}{
		{"format", errors.NewFormatErrorf("bad group %d", 2), true, false, false},
		{"validation", errors.NewValidationError("bad inchi"), false, true, false},
		{"precondition", errors.NewPreconditionErrorf("Invalid key selector '%c'", 'X'), false, false, true},
		{"plain", stderrors.New("plain"), false, false, false},
		{"nil", nil, false, false, false},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.format, errors.IsFormat(tc.err))
			assert.Equal(t, tc.validation, errors.IsValidation(tc.err))
			assert.Equal(t, tc.precondition, errors.IsPrecondition(tc.err))
		})
	}
}

func TestGetCode(t *testing.T) {
	t.Parallel()

	assert.Equal(t, errors.CodeOK, errors.GetCode(nil))
	assert.Equal(t, errors.CodeUnknown, errors.GetCode(stderrors.New("x")))
	assert.Equal(t, errors.ErrCodeRxnfile, errors.GetCode(errors.New(errors.ErrCodeRxnfile, "x")))
}

func TestIsNotFound(t *testing.T) {
	t.Parallel()

	assert.True(t, errors.IsNotFound(errors.NotFound("x")))
	assert.True(t, errors.IsNotFound(errors.New(errors.ErrCodeReactionNotFound, "x")))
	assert.True(t, errors.IsNotFound(errors.New(errors.ErrCodeObjectNotFound, "x")))
	assert.False(t, errors.IsNotFound(errors.Internal("x")))
}

func TestStackMentionsCaller(t *testing.T) {
	t.Parallel()

	ae := errors.NewFormatError("x")
	assert.True(t, strings.Contains(ae.Stack, "errors_test.go"))
}

func TestHTTPStatusForCode(t *testing.T) {
	t.Parallel()

	cases := []struct {
		code errors.ErrorCode
		want int
	}{
		{errors.ErrCodeFormat, http.StatusBadRequest},
		{errors.ErrCodeValidation, http.StatusUnprocessableEntity},
		{errors.ErrCodePrecondition, http.StatusBadRequest},
		{errors.ErrCodeReactionNotFound, http.StatusNotFound},
		{errors.ErrCodeEngineUnsupported, http.StatusNotImplemented},
		{errors.ErrCodeDatabaseError, http.StatusInternalServerError},
		{errors.ErrorCode("NOPE_999"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, errors.HTTPStatusForCode(tc.code), tc.code)
	}
	assert.True(t, errors.IsClientError(errors.ErrCodeFormat))
	assert.True(t, errors.IsServerError(errors.ErrCodeEngineFailed))
}

func TestModuleForCode(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "RINCHI", errors.ModuleForCode(errors.ErrCodeFormat))
	assert.Equal(t, "MDL", errors.ModuleForCode(errors.ErrCodeMolfile))
	assert.Equal(t, "OK", errors.ModuleForCode(errors.CodeOK))
}
