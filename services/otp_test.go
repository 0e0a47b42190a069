package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jansarthi-be/store/memstore"
)

type fakeSMS struct {
	mu   sync.Mutex
	sent []string
	err  error
}

func (f *fakeSMS) Send(_ context.Context, _, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, body)
	return nil
}

var codePattern = regexp.MustCompile(`code is: (\d+)`)

func (f *fakeSMS) lastCode(t *testing.T) string {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.sent)
	m := codePattern.FindStringSubmatch(f.sent[len(f.sent)-1])
	require.Len(t, m, 2)
	return m[1]
}

type clock struct{ t time.Time }

func (c *clock) Now() time.Time { return c.t }
func (c *clock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newOTPService(t *testing.T, cooldown *Cooldown) (*OTPService, *fakeSMS, *clock) {
	t.Helper()
	sms := &fakeSMS{}
	clk := &clock{t: time.Date(2024, 12, 1, 10, 0, 0, 0, time.UTC)}
	return &OTPService{
		Store:       memstore.New(),
		SMS:         sms,
		Cooldown:    cooldown,
		Expiry:      10 * time.Minute,
		Length:      6,
		MaxAttempts: 3,
		Now:         clk.Now,
	}, sms, clk
}

func TestGenerateCode(t *testing.T) {
	code, err := GenerateCode(nil, 6)
	require.NoError(t, err)
	assert.Regexp(t, `^\d{6}$`, code)
}

func TestOTPService_IssueAndVerify(t *testing.T) {
	svc, sms, _ := newOTPService(t, nil)
	ctx := context.Background()

	require.NoError(t, svc.Issue(ctx, "+919876543210"))
	code := sms.lastCode(t)
	assert.Len(t, code, 6)
	assert.Contains(t, sms.sent[0], "expire in 10 minutes")

	require.NoError(t, svc.Verify(ctx, "+919876543210", code))

	// consumed codes cannot be reused
	assert.ErrorIs(t, svc.Verify(ctx, "+919876543210", code), ErrOTPNotFound)
}

func TestOTPService_VerifyWithoutCode(t *testing.T) {
	svc, _, _ := newOTPService(t, nil)
	assert.ErrorIs(t, svc.Verify(context.Background(), "+919876543210", "123456"), ErrOTPNotFound)
}

func TestOTPService_Expired(t *testing.T) {
	svc, sms, clk := newOTPService(t, nil)
	ctx := context.Background()

	require.NoError(t, svc.Issue(ctx, "+919876543210"))
	clk.Advance(10 * time.Minute)
	assert.ErrorIs(t, svc.Verify(ctx, "+919876543210", sms.lastCode(t)), ErrOTPExpired)
}

func TestOTPService_AttemptCounting(t *testing.T) {
	svc, sms, _ := newOTPService(t, nil)
	ctx := context.Background()

	require.NoError(t, svc.Issue(ctx, "+919876543210"))
	code := sms.lastCode(t)
	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}

	var invalid *InvalidOTPError
	err := svc.Verify(ctx, "+919876543210", wrong)
	require.True(t, errors.As(err, &invalid))
	assert.Equal(t, 2, invalid.Remaining)
	assert.Equal(t, "Invalid OTP. 2 attempts remaining.", err.Error())

	err = svc.Verify(ctx, "+919876543210", wrong)
	require.True(t, errors.As(err, &invalid))
	assert.Equal(t, 1, invalid.Remaining)

	err = svc.Verify(ctx, "+919876543210", wrong)
	require.True(t, errors.As(err, &invalid))
	assert.Equal(t, 0, invalid.Remaining)

	// even the right code is refused once the attempts are used up
	assert.ErrorIs(t, svc.Verify(ctx, "+919876543210", code), ErrOTPTooManyAttempts)
}

func TestOTPService_ParallelGuessesRespectLimit(t *testing.T) {
	svc, sms, _ := newOTPService(t, nil)
	ctx := context.Background()
	const mobile = "+919876543210"

	require.NoError(t, svc.Issue(ctx, mobile))
	code := sms.lastCode(t)

	var (
		wg               sync.WaitGroup
		mu               sync.Mutex
		invalid, tooMany int
	)
	for i := 0; i < 30; i++ {
		guess := fmt.Sprintf("%06d", i)
		if guess == code {
			guess = "999999"
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := svc.Verify(ctx, mobile, guess)
			var inv *InvalidOTPError
			mu.Lock()
			defer mu.Unlock()
			switch {
			case errors.As(err, &inv):
				invalid++
			case errors.Is(err, ErrOTPTooManyAttempts):
				tooMany++
			default:
				t.Errorf("unexpected result: %v", err)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 3, invalid)
	assert.Equal(t, 27, tooMany)

	otp, err := svc.Store.LatestUnusedOTP(ctx, mobile)
	require.NoError(t, err)
	assert.Equal(t, 3, otp.AttemptCount)
	assert.ErrorIs(t, svc.Verify(ctx, mobile, code), ErrOTPTooManyAttempts)
}

func TestOTPService_CodeConsumedOnce(t *testing.T) {
	svc, sms, _ := newOTPService(t, nil)
	ctx := context.Background()
	const mobile = "+919876543210"

	require.NoError(t, svc.Issue(ctx, mobile))
	code := sms.lastCode(t)

	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = svc.Verify(ctx, mobile, code)
		}(i)
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		if err == nil {
			ok++
		} else {
			assert.ErrorIs(t, err, ErrOTPNotFound)
		}
	}
	assert.Equal(t, 1, ok)
}

func TestOTPService_NewestCodeWins(t *testing.T) {
	svc, sms, clk := newOTPService(t, nil)
	ctx := context.Background()

	require.NoError(t, svc.Issue(ctx, "+919876543210"))
	first := sms.lastCode(t)
	clk.Advance(time.Minute)
	require.NoError(t, svc.Issue(ctx, "+919876543210"))
	second := sms.lastCode(t)

	if first != second {
		var invalid *InvalidOTPError
		assert.True(t, errors.As(svc.Verify(ctx, "+919876543210", first), &invalid))
	}
	assert.NoError(t, svc.Verify(ctx, "+919876543210", second))
}

func TestOTPService_SMSFailure(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	svc, sms, _ := newOTPService(t, &Cooldown{Client: rdb, Prefix: "otp", Window: time.Minute})
	sms.err = errors.New("twilio down")

	err := svc.Issue(context.Background(), "+919876543210")
	assert.ErrorIs(t, err, ErrSMSFailed)
	// the cooldown is released so the user may retry at once
	assert.False(t, mr.Exists("otp:+919876543210"))
}

func TestOTPService_Cooldown(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	svc, _, _ := newOTPService(t, &Cooldown{Client: rdb, Prefix: "otp", Window: time.Minute})
	ctx := context.Background()

	require.NoError(t, svc.Issue(ctx, "+919876543210"))

	var cd *CooldownError
	err := svc.Issue(ctx, "+919876543210")
	require.True(t, errors.As(err, &cd))
	assert.Equal(t, time.Minute, cd.RetryAfter)
	assert.Equal(t, "Please wait 60 seconds before requesting a new OTP.", err.Error())

	// other numbers are unaffected
	assert.NoError(t, svc.Issue(ctx, "+919812345678"))

	mr.FastForward(time.Minute)
	assert.NoError(t, svc.Issue(ctx, "+919876543210"))
}

func TestOTPService_CooldownUnavailableFailsOpen(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1})
	svc, sms, _ := newOTPService(t, &Cooldown{Client: rdb, Prefix: "otp", Window: time.Minute})

	require.NoError(t, svc.Issue(context.Background(), "+919876543210"))
	assert.Len(t, sms.sent, 1)
}

func TestCooldown_NilIsNoop(t *testing.T) {
	var c *Cooldown
	ok, wait, err := c.Acquire(context.Background(), "x")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Zero(t, wait)
	assert.NoError(t, c.Release(context.Background(), "x"))
}
