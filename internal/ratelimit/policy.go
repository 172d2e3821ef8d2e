package ratelimit

import "time"

// Class identifies an endpoint category for the policy matrix.
type Class string

const (
	ClassGlobal         Class = "global"
	ClassLogin          Class = "login"
	ClassRegister       Class = "register"
	ClassSendCode       Class = "send_code"
	ClassSendCodeByID   Class = "send_code_identity"
	ClassPasswordReset  Class = "password_reset"
	ClassSwipeFree      Class = "swipe_free"
	ClassSwipePaid      Class = "swipe_paid"
	ClassCardCreateFree Class = "card_create_free"
	ClassCardCreatePaid Class = "card_create_paid"
)

// Policy is one row of the rate-limit policy matrix: a limit over a window.
type Policy struct {
	Limit  int
	Window time.Duration
}

// Policies is the fixed matrix of admission rules keyed by Class.
var Policies = map[Class]Policy{
	ClassGlobal:         {Limit: 100, Window: 3600 * time.Second},
	ClassLogin:          {Limit: 5, Window: 300 * time.Second},
	ClassRegister:       {Limit: 3, Window: 3600 * time.Second},
	ClassSendCode:       {Limit: 3, Window: 300 * time.Second},
	ClassSendCodeByID:   {Limit: 1, Window: 60 * time.Second},
	ClassPasswordReset:  {Limit: 3, Window: 3600 * time.Second},
	ClassSwipeFree:      {Limit: 30, Window: 86400 * time.Second},
	ClassSwipePaid:      {Limit: 30, Window: 3600 * time.Second},
	ClassCardCreateFree: {Limit: 2, Window: 86400 * time.Second},
	ClassCardCreatePaid: {Limit: 10, Window: 86400 * time.Second},
}

// BlockDuration returns how long an IP is blocked after tripping the given
// class's limit: strict endpoints block 15 minutes,
// the global class blocks 60 minutes, suspicious-activity trips block 30.
func BlockDuration(class Class) time.Duration {
	switch class {
	case ClassGlobal:
		return 60 * time.Minute
	default:
		return 15 * time.Minute
	}
}

const SuspiciousActivityBlock = 30 * time.Minute
