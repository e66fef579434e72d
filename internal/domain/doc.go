// Package domain models space-weather telemetry and the labels derived from it.
//
// # Data Sources
//
// Observations follow the NOAA Space Weather Prediction Center (SWPC) real-time
// products at https://services.swpc.noaa.gov/: DSCOVR/ACE plasma and magnetic
// field (solar wind speed, proton density, temperature, Bt, Bz), the planetary
// K-index, and GOES X-ray and integral proton flux. NASA DONKI supplies flare
// and CME event lists. Training runs use synthetic hourly data with the same
// columns when live history is unavailable.
//
// # Units
//
//	solar_wind_speed  km/s
//	proton_density    protons/cm³
//	bt, bz            nT (Bz in GSM coordinates, negative = southward)
//	temperature       K
//	xray_flux         W/m² (GOES 1-8 Å long channel)
//	proton_flux       pfu (≥10 MeV)
//	kp_index          0-9, planetary three-hour index
//	dst_index         nT, negative during storms
//
// Missing values are NaN in numeric columns.
//
// # Classification
//
// Flare class is a logarithmic ladder on X-ray flux:
//
//	<1e-8 A | <1e-7 B | <1e-6 C | <1e-5 M | ≥1e-5 X
//
// A flare "occurred" when the class is M or X.
//
// Geomagnetic storm level follows the NOAA G-scale on Kp:
//
//	<5 None | <6 G1-Minor | <7 G2-Moderate | <8 G3-Strong | <9 G4-Severe | ≥9 G5-Extreme
//
// A storm "occurred" when Kp ≥ 5. Both ladders are total: NaN or non-positive
// flux is class A and NaN Kp is Unknown.
//
// # Derived Quantities
//
//	dynamic_pressure  proton_density × speed²
//	electric_field    speed × |bz|
//	alfven_mach       speed / (bt + 1)
//	dst (estimate)    −15 × speed × |min(bz, 0)| / 1000 − 20
package domain
