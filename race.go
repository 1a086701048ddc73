// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build race

package estream

// RaceEnabled is true when the race detector is active.
// Used by tests to skip concurrent stream tests, which establish
// happens-before through atomic memory orderings the detector cannot
// observe and would report as false positives.
const RaceEnabled = true
