package mqtt

import (
	"errors"

	"github.com/go-playground/validator/v10"
)

var optionsValidator = validator.New()

// validateOptions runs Options through a struct validation pass, grounded
// in lybxkl-simq's use of github.com/go-playground/validator/v10 for
// exactly this kind of config validation.
func validateOptions(o Options) error {
	if !o.Validate {
		return nil
	}
	if o.TopicAliasMaximum > 0 && o.ProtocolVersion < 5 {
		return errors.New("mqtt: topic alias requires protocol version 5")
	}
	return optionsValidator.Struct(o)
}
