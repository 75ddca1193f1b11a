// Package ir provides the literal value types used in allocation constraints.
//
// All other internal packages import ir; ir imports nothing internal. Values
// form a sealed set (Null, String, Int, Float, Bool) so the constraint compiler
// can render every literal with an exhaustive type switch.
//
// Key design constraints:
//   - Strings are NFC-normalized at the rendering boundary
//   - Floats must be finite; NaN and infinities have no SQL literal form
//   - Rendering is deterministic: the same value always yields the same text
package ir
