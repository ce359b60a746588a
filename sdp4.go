package tlefit

import "math"

// deepspace holds the lunar-solar and resonance terms for orbits with periods
// of 225 minutes or more. Like brouwer, it is computed once and never written
// afterwards: resonant orbits re-integrate the resonance phase from epoch on
// every call instead of caching integrator state between calls.
type deepspace[T Scalar[T]] struct {
	irez int // 0 none, 1 geosynchronous, 2 half-day

	// lunar-solar periodic coefficients
	se2, se3, si2, si3, sl2, sl3, sl4 T
	sgh2, sgh3, sgh4, sh2, sh3        T
	ee2, e3, xi2, xi3, xl2, xl3, xl4  T
	xgh2, xgh3, xgh4, xh2, xh3        T
	zmos, zmol                        float64

	// lunar-solar secular rates
	dedt, didt, dmdt, dnodt, domdt T

	// resonance terms
	del1, del2, del3                         T
	d2201, d2211, d3210, d3222, d4410, d4422 T
	d5220, d5232, d5421, d5433               T
	xlamo, xfact                             T

	nodp, argpo, argpdot T
	gsto                 float64
}

// newDeepspace computes the Brown lunar-solar coefficients and, for resonant
// mean motions, the resonance disturbing-function terms at epoch.
func newDeepspace[T Scalar[T]](b *brouwer[T], emsq, betasq T, rtemsq T) *deepspace[T] {
	el := b.el
	one := el.n.Lift(1)
	d := &deepspace[T]{
		nodp:    b.nodp,
		argpo:   el.argp,
		argpdot: b.omgdot,
		gsto:    b.gsto,
	}

	snodm, cnodm := el.node.SinCos()
	sinomm, cosomm := el.argp.SinCos()
	sinim, cosim := b.sinio, b.cosio
	em := el.e

	// epoch-fixed lunar orientation (days since 1899-12-31 12:00)
	day := el.epochJD - 2415020.0
	xnodce := math.Mod(4.5236020-9.2422029e-4*day, twoPi)
	stem, ctem := math.Sincos(xnodce)
	zcosil := 0.91375164 - 0.03568096*ctem
	zsinil := math.Sqrt(1 - zcosil*zcosil)
	zsinhl := 0.089683511 * stem / zsinil
	zcoshl := math.Sqrt(1 - zsinhl*zsinhl)
	gam := 5.8351514 + 0.0019443680*day
	zx := math.Atan2(0.39785416*stem/zsinil, zcoshl*ctem+0.91744867*zsinhl*stem)
	zx = gam + zx - xnodce
	zsingl, zcosgl := math.Sincos(zx)
	d.zmol = math.Mod(4.7199672+0.22997150*day-gam, twoPi)
	d.zmos = math.Mod(6.2565837+0.017201977*day, twoPi)

	// two passes: solar terms first, then lunar
	zcosg := one.MulS(zcosgs)
	zsing := one.MulS(zsings)
	zcosi := one.MulS(zcosis)
	zsini := one.MulS(zsinis)
	zcosh := cnodm
	zsinh := snodm
	cc := c1ss
	xnoi := one.Div(b.nodp)

	var s1, s2, s3, s4, s5, s6, s7 T
	var ss1, ss2, ss3, ss4, ss5, ss6, ss7 T
	var z1, z2, z3, z11, z12, z13, z21, z22, z23, z31, z32, z33 T
	var sz1, sz2, sz3, sz11, sz12, sz13, sz21, sz22, sz23, sz31, sz32, sz33 T

	for lsflg := 1; lsflg <= 2; lsflg++ {
		a1 := zcosg.Mul(zcosh).Add(zsing.Mul(zcosi).Mul(zsinh))
		a3 := zsing.Neg().Mul(zcosh).Add(zcosg.Mul(zcosi).Mul(zsinh))
		a7 := zcosg.Neg().Mul(zsinh).Add(zsing.Mul(zcosi).Mul(zcosh))
		a8 := zsing.Mul(zsini)
		a9 := zsing.Mul(zsinh).Add(zcosg.Mul(zcosi).Mul(zcosh))
		a10 := zcosg.Mul(zsini)
		a2 := cosim.Mul(a7).Add(sinim.Mul(a8))
		a4 := cosim.Mul(a9).Add(sinim.Mul(a10))
		a5 := sinim.Neg().Mul(a7).Add(cosim.Mul(a8))
		a6 := sinim.Neg().Mul(a9).Add(cosim.Mul(a10))

		x1 := a1.Mul(cosomm).Add(a2.Mul(sinomm))
		x2 := a3.Mul(cosomm).Add(a4.Mul(sinomm))
		x3 := a1.Neg().Mul(sinomm).Add(a2.Mul(cosomm))
		x4 := a3.Neg().Mul(sinomm).Add(a4.Mul(cosomm))
		x5 := a5.Mul(sinomm)
		x6 := a6.Mul(sinomm)
		x7 := a5.Mul(cosomm)
		x8 := a6.Mul(cosomm)

		z31 = x1.Mul(x1).MulS(12).Sub(x3.Mul(x3).MulS(3))
		z32 = x1.Mul(x2).MulS(24).Sub(x3.Mul(x4).MulS(6))
		z33 = x2.Mul(x2).MulS(12).Sub(x4.Mul(x4).MulS(3))
		z1 = a1.Mul(a1).Add(a2.Mul(a2)).MulS(3).Add(z31.Mul(emsq))
		z2 = a1.Mul(a3).Add(a2.Mul(a4)).MulS(6).Add(z32.Mul(emsq))
		z3 = a3.Mul(a3).Add(a4.Mul(a4)).MulS(3).Add(z33.Mul(emsq))
		z11 = a1.Mul(a5).MulS(-6).Add(
			emsq.Mul(x1.Mul(x7).MulS(-24).Sub(x3.Mul(x5).MulS(6))))
		z12 = a1.Mul(a6).Add(a3.Mul(a5)).MulS(-6).Add(
			emsq.Mul(x2.Mul(x7).Add(x1.Mul(x8)).MulS(-24).Sub(x3.Mul(x6).Add(x4.Mul(x5)).MulS(6))))
		z13 = a3.Mul(a6).MulS(-6).Add(
			emsq.Mul(x2.Mul(x8).MulS(-24).Sub(x4.Mul(x6).MulS(6))))
		z21 = a2.Mul(a5).MulS(6).Add(
			emsq.Mul(x1.Mul(x5).MulS(24).Sub(x3.Mul(x7).MulS(6))))
		z22 = a4.Mul(a5).Add(a2.Mul(a6)).MulS(6).Add(
			emsq.Mul(x2.Mul(x5).Add(x1.Mul(x6)).MulS(24).Sub(x4.Mul(x7).Add(x3.Mul(x8)).MulS(6))))
		z23 = a4.Mul(a6).MulS(6).Add(
			emsq.Mul(x2.Mul(x6).MulS(24).Sub(x4.Mul(x8).MulS(6))))
		z1 = z1.MulS(2).Add(betasq.Mul(z31))
		z2 = z2.MulS(2).Add(betasq.Mul(z32))
		z3 = z3.MulS(2).Add(betasq.Mul(z33))
		s3 = xnoi.MulS(cc)
		s2 = s3.MulS(-0.5).Div(rtemsq)
		s4 = s3.Mul(rtemsq)
		s1 = em.MulS(-15).Mul(s4)
		s5 = x1.Mul(x3).Add(x2.Mul(x4))
		s6 = x2.Mul(x3).Add(x1.Mul(x4))
		s7 = x2.Mul(x4).Sub(x1.Mul(x3))

		if lsflg == 1 {
			ss1, ss2, ss3, ss4, ss5, ss6, ss7 = s1, s2, s3, s4, s5, s6, s7
			sz1, sz2, sz3 = z1, z2, z3
			sz11, sz12, sz13 = z11, z12, z13
			sz21, sz22, sz23 = z21, z22, z23
			sz31, sz32, sz33 = z31, z32, z33
			zcosg = one.MulS(zcosgl)
			zsing = one.MulS(zsingl)
			zcosi = one.MulS(zcosil)
			zsini = one.MulS(zsinil)
			zcosh = cnodm.MulS(zcoshl).Add(snodm.MulS(zsinhl))
			zsinh = snodm.MulS(zcoshl).Sub(cnodm.MulS(zsinhl))
			cc = c1l
		}
	}

	d.se2 = ss1.Mul(ss6).MulS(2)
	d.se3 = ss1.Mul(ss7).MulS(2)
	d.si2 = ss2.Mul(sz12).MulS(2)
	d.si3 = ss2.Mul(sz13.Sub(sz11)).MulS(2)
	d.sl2 = ss3.Mul(sz2).MulS(-2)
	d.sl3 = ss3.Mul(sz3.Sub(sz1)).MulS(-2)
	d.sl4 = ss3.Mul(emsq.MulS(-9).AddS(-21)).MulS(-2 * zes)
	d.sgh2 = ss4.Mul(sz32).MulS(2)
	d.sgh3 = ss4.Mul(sz33.Sub(sz31)).MulS(2)
	d.sgh4 = ss4.MulS(-18 * zes)
	d.sh2 = ss2.Mul(sz22).MulS(-2)
	d.sh3 = ss2.Mul(sz23.Sub(sz21)).MulS(-2)

	d.ee2 = s1.Mul(s6).MulS(2)
	d.e3 = s1.Mul(s7).MulS(2)
	d.xi2 = s2.Mul(z12).MulS(2)
	d.xi3 = s2.Mul(z13.Sub(z11)).MulS(2)
	d.xl2 = s3.Mul(z2).MulS(-2)
	d.xl3 = s3.Mul(z3.Sub(z1)).MulS(-2)
	d.xl4 = s3.Mul(emsq.MulS(-9).AddS(-21)).MulS(-2 * zel)
	d.xgh2 = s4.Mul(z32).MulS(2)
	d.xgh3 = s4.Mul(z33.Sub(z31)).MulS(2)
	d.xgh4 = s4.MulS(-18 * zel)
	d.xh2 = s2.Mul(z22).MulS(-2)
	d.xh3 = s2.Mul(z23.Sub(z21)).MulS(-2)

	// secular rates from the averaged disturbing function
	ses := ss1.MulS(zns).Mul(ss5)
	sis := ss2.MulS(zns).Mul(sz11.Add(sz13))
	sls := ss3.MulS(-zns).Mul(sz1.Add(sz3).Add(emsq.MulS(-6).AddS(-14)))
	sghs := ss4.MulS(zns).Mul(sz31.Add(sz33).AddS(-6))
	shs := ss2.MulS(-zns).Mul(sz21.Add(sz23))
	incl := el.i.Float()
	polar := incl < 5.2359877e-2 || incl > math.Pi-5.2359877e-2
	if polar {
		shs = one.MulS(0)
	}
	if sinim.Float() != 0 {
		shs = shs.Div(sinim)
	}
	sgs := sghs.Sub(cosim.Mul(shs))

	d.dedt = ses.Add(s1.MulS(znl).Mul(s5))
	d.didt = sis.Add(s2.MulS(znl).Mul(z11.Add(z13)))
	d.dmdt = sls.Sub(s3.MulS(znl).Mul(z1.Add(z3).Add(emsq.MulS(-6).AddS(-14))))
	sghl := s4.MulS(znl).Mul(z31.Add(z33).AddS(-6))
	shll := s2.MulS(-znl).Mul(z21.Add(z23))
	if polar {
		shll = one.MulS(0)
	}
	d.domdt = sgs.Add(sghl)
	d.dnodt = shs
	if sinim.Float() != 0 {
		d.domdt = d.domdt.Sub(cosim.Div(sinim).Mul(shll))
		d.dnodt = d.dnodt.Add(shll.Div(sinim))
	}

	d.initResonance(b, emsq)
	return d
}

// initResonance classifies the mean motion against the one-day and half-day
// resonance bands and, when resonant, evaluates the disturbing-function
// coefficients and the epoch resonance phase.
func (d *deepspace[T]) initResonance(b *brouwer[T], emsq T) {
	el := b.el
	one := el.n.Lift(1)
	zero := one.MulS(0)

	d.del1, d.del2, d.del3 = zero, zero, zero
	d.d2201, d.d2211, d.d3210, d.d3222 = zero, zero, zero, zero
	d.d4410, d.d4422, d.d5220, d.d5232 = zero, zero, zero, zero
	d.d5421, d.d5433 = zero, zero
	d.xlamo, d.xfact = zero, zero

	nm := b.nodp
	nf := nm.Float()
	if nf < 0.0052359877 && nf > 0.0034906585 {
		d.irez = 1
	}
	if nf >= 8.26e-3 && nf <= 9.24e-3 && el.e.Float() >= 0.5 {
		d.irez = 2
	}
	if d.irez == 0 {
		return
	}

	em := el.e
	sinim, cosim := b.sinio, b.cosio
	aonv := nm.MulS(1 / xke).Pow(x2o3)

	if d.irez == 2 {
		// geopotential resonance for 12-hour orbits
		cosisq := cosim.Mul(cosim)
		emo := em.Float()
		eoc := em.Mul(emsq)

		g201 := em.AddS(-0.64).MulS(-0.440).AddS(-0.306)
		var g211, g310, g322, g410, g422, g520 T
		if emo <= 0.65 {
			g211 = em.MulS(-13.247).Add(emsq.MulS(16.290)).AddS(3.616)
			g310 = em.MulS(117.390).Sub(emsq.MulS(228.419)).Add(eoc.MulS(156.591)).AddS(-19.302)
			g322 = em.MulS(109.7927).Sub(emsq.MulS(214.6334)).Add(eoc.MulS(146.5816)).AddS(-18.9068)
			g410 = em.MulS(242.694).Sub(emsq.MulS(471.094)).Add(eoc.MulS(313.953)).AddS(-41.122)
			g422 = em.MulS(841.880).Sub(emsq.MulS(1629.014)).Add(eoc.MulS(1083.435)).AddS(-146.407)
			g520 = em.MulS(3017.977).Sub(emsq.MulS(5740.032)).Add(eoc.MulS(3708.276)).AddS(-532.114)
		} else {
			g211 = em.MulS(331.819).Sub(emsq.MulS(508.738)).Add(eoc.MulS(266.724)).AddS(-72.099)
			g310 = em.MulS(1582.851).Sub(emsq.MulS(2415.925)).Add(eoc.MulS(1246.113)).AddS(-346.844)
			g322 = em.MulS(1554.908).Sub(emsq.MulS(2366.899)).Add(eoc.MulS(1215.972)).AddS(-342.585)
			g410 = em.MulS(4758.686).Sub(emsq.MulS(7193.992)).Add(eoc.MulS(3651.957)).AddS(-1052.797)
			g422 = em.MulS(16178.110).Sub(emsq.MulS(24462.770)).Add(eoc.MulS(12422.520)).AddS(-3581.690)
			if emo > 0.715 {
				g520 = em.MulS(29936.92).Sub(emsq.MulS(54087.36)).Add(eoc.MulS(31324.56)).AddS(-5149.66)
			} else {
				g520 = em.MulS(-4664.75).Add(emsq.MulS(3763.64)).AddS(1464.74)
			}
		}
		var g533, g521, g532 T
		if emo < 0.7 {
			g533 = em.MulS(4988.61).Sub(emsq.MulS(9064.77)).Add(eoc.MulS(5542.21)).AddS(-919.2277)
			g521 = em.MulS(4568.6173).Sub(emsq.MulS(8491.4146)).Add(eoc.MulS(5337.524)).AddS(-822.71072)
			g532 = em.MulS(4690.25).Sub(emsq.MulS(8624.77)).Add(eoc.MulS(5341.4)).AddS(-853.666)
		} else {
			g533 = em.MulS(161616.52).Sub(emsq.MulS(229838.20)).Add(eoc.MulS(109377.94)).AddS(-37995.780)
			g521 = em.MulS(218913.95).Sub(emsq.MulS(309468.16)).Add(eoc.MulS(146349.42)).AddS(-51752.104)
			g532 = em.MulS(170470.89).Sub(emsq.MulS(242699.48)).Add(eoc.MulS(115605.82)).AddS(-40023.880)
		}

		sini2 := sinim.Mul(sinim)
		f220 := cosim.MulS(2).Add(cosisq).AddS(1).MulS(0.75)
		f221 := sini2.MulS(1.5)
		f321 := sinim.MulS(1.875).Mul(one.Sub(cosim.MulS(2)).Sub(cosisq.MulS(3)))
		f322 := sinim.MulS(-1.875).Mul(one.Add(cosim.MulS(2)).Sub(cosisq.MulS(3)))
		f441 := sini2.MulS(35).Mul(f220)
		f442 := sini2.MulS(39.375).Mul(sini2)
		f522 := sinim.MulS(9.84375).Mul(
			sini2.Mul(one.Sub(cosim.MulS(2)).Sub(cosisq.MulS(5))).Add(
				cosim.MulS(4).AddS(-2).Add(cosisq.MulS(6)).MulS(1.0/3.0)))
		f523 := sinim.Mul(
			sini2.MulS(4.92187512).Mul(one.MulS(-2).Sub(cosim.MulS(4)).Add(cosisq.MulS(10))).Add(
				one.Add(cosim.MulS(2)).Sub(cosisq.MulS(3)).MulS(6.56250012)))
		f542 := sinim.MulS(29.53125).Mul(
			one.MulS(2).Sub(cosim.MulS(8)).Add(
				cosisq.Mul(cosim.MulS(8).AddS(-12).Add(cosisq.MulS(10)))))
		f543 := sinim.MulS(29.53125).Mul(
			one.MulS(-2).Sub(cosim.MulS(8)).Add(
				cosisq.Mul(cosim.MulS(8).AddS(12).Sub(cosisq.MulS(10)))))

		xno2 := nm.Mul(nm)
		ainv2 := aonv.Mul(aonv)
		temp1 := xno2.Mul(ainv2).MulS(3)
		temp := temp1.MulS(root22)
		d.d2201 = temp.Mul(f220).Mul(g201)
		d.d2211 = temp.Mul(f221).Mul(g211)
		temp1 = temp1.Mul(aonv)
		temp = temp1.MulS(root32)
		d.d3210 = temp.Mul(f321).Mul(g310)
		d.d3222 = temp.Mul(f322).Mul(g322)
		temp1 = temp1.Mul(aonv)
		temp = temp1.MulS(2 * root44)
		d.d4410 = temp.Mul(f441).Mul(g410)
		d.d4422 = temp.Mul(f442).Mul(g422)
		temp1 = temp1.Mul(aonv)
		temp = temp1.MulS(root52)
		d.d5220 = temp.Mul(f522).Mul(g520)
		d.d5232 = temp.Mul(f523).Mul(g532)
		temp = temp1.MulS(2 * root54)
		d.d5421 = temp.Mul(f542).Mul(g521)
		d.d5433 = temp.Mul(f543).Mul(g533)

		d.xlamo = el.m.Add(el.node.MulS(2)).AddS(-2 * d.gsto).Mod(twoPi)
		d.xfact = b.mdot.Add(d.dmdt).Add(
			b.xnodot.Add(d.dnodt).AddS(-rptim).MulS(2)).Sub(d.nodp)
	} else {
		// synchronous resonance
		g200 := emsq.MulS(-2.5).AddS(1).Add(emsq.Mul(emsq).MulS(0.8125))
		g310 := emsq.MulS(2).AddS(1)
		g300 := emsq.MulS(-6).AddS(1).Add(emsq.Mul(emsq).MulS(6.60937))
		f220 := cosim.AddS(1).Pow(2).MulS(0.75)
		f311 := sinim.Mul(sinim).Mul(cosim.MulS(3).AddS(1)).MulS(0.9375).Sub(
			cosim.AddS(1).MulS(0.75))
		f330 := cosim.AddS(1)
		f330 = f330.Mul(f330).Mul(f330).MulS(1.875)
		del1 := nm.Mul(nm).Mul(aonv).Mul(aonv).MulS(3)
		d.del1 = del1.Mul(f311).Mul(g310).MulS(q31).Mul(aonv)
		d.del2 = del1.Mul(f220).Mul(g200).MulS(2 * q22)
		d.del3 = del1.Mul(f330).Mul(g300).MulS(3 * q33).Mul(aonv)

		d.xlamo = el.m.Add(el.node).Add(el.argp).AddS(-d.gsto).Mod(twoPi)
		d.xfact = b.mdot.Add(b.omgdot).Add(b.xnodot).AddS(-rptim).Add(
			d.dmdt).Add(d.domdt).Add(d.dnodt).Sub(d.nodp)
	}
}

// rates evaluates the resonance derivatives at a phase point.
func (d *deepspace[T]) rates(xli, xni T, atime float64) (xndt, xldot, xnddt T) {
	if d.irez != 2 {
		xndt = d.del1.Mul(xli.AddS(-fasx2).Sin()).Add(
			d.del2.Mul(xli.AddS(-fasx4).MulS(2).Sin())).Add(
			d.del3.Mul(xli.AddS(-fasx6).MulS(3).Sin()))
		xldot = xni.Add(d.xfact)
		xnddt = d.del1.Mul(xli.AddS(-fasx2).Cos()).Add(
			d.del2.Mul(xli.AddS(-fasx4).MulS(2).Cos()).MulS(2)).Add(
			d.del3.Mul(xli.AddS(-fasx6).MulS(3).Cos()).MulS(3))
		xnddt = xnddt.Mul(xldot)
		return
	}
	xomi := d.argpo.Add(d.argpdot.MulS(atime))
	x2omi := xomi.MulS(2)
	x2li := xli.MulS(2)
	xndt = d.d2201.Mul(x2omi.Add(xli).AddS(-g22).Sin()).Add(
		d.d2211.Mul(xli.AddS(-g22).Sin())).Add(
		d.d3210.Mul(xomi.Add(xli).AddS(-g32).Sin())).Add(
		d.d3222.Mul(xomi.Neg().Add(xli).AddS(-g32).Sin())).Add(
		d.d4410.Mul(x2omi.Add(x2li).AddS(-g44).Sin())).Add(
		d.d4422.Mul(x2li.AddS(-g44).Sin())).Add(
		d.d5220.Mul(xomi.Add(xli).AddS(-g52).Sin())).Add(
		d.d5232.Mul(xomi.Neg().Add(xli).AddS(-g52).Sin())).Add(
		d.d5421.Mul(xomi.Add(x2li).AddS(-g54).Sin())).Add(
		d.d5433.Mul(xomi.Neg().Add(x2li).AddS(-g54).Sin()))
	xldot = xni.Add(d.xfact)
	xnddt = d.d2201.Mul(x2omi.Add(xli).AddS(-g22).Cos()).Add(
		d.d2211.Mul(xli.AddS(-g22).Cos())).Add(
		d.d3210.Mul(xomi.Add(xli).AddS(-g32).Cos())).Add(
		d.d3222.Mul(xomi.Neg().Add(xli).AddS(-g32).Cos())).Add(
		d.d5220.Mul(xomi.Add(xli).AddS(-g52).Cos())).Add(
		d.d5232.Mul(xomi.Neg().Add(xli).AddS(-g52).Cos())).Add(
		d.d4410.Mul(x2omi.Add(x2li).AddS(-g44).Cos()).Add(
			d.d4422.Mul(x2li.AddS(-g44).Cos())).Add(
			d.d5421.Mul(xomi.Add(x2li).AddS(-g54).Cos())).Add(
			d.d5433.Mul(xomi.Neg().Add(x2li).AddS(-g54).Cos())).MulS(2))
	xnddt = xnddt.Mul(xldot)
	return
}

// secular applies the lunar-solar secular rates and, on resonant orbits,
// integrates the resonance phase from epoch to t with the 720-minute
// Euler-Maclaurin scheme. Starting from epoch every call keeps the receiver
// read-only at the cost of re-walking earlier steps.
func (d *deepspace[T]) secular(t float64, em, inclm, argpm, nodem, mm, nm T) (T, T, T, T, T, T) {
	em = em.Add(d.dedt.MulS(t))
	inclm = inclm.Add(d.didt.MulS(t))
	argpm = argpm.Add(d.domdt.MulS(t))
	nodem = nodem.Add(d.dnodt.MulS(t))
	mm = mm.Add(d.dmdt.MulS(t))
	if d.irez == 0 {
		return em, inclm, argpm, nodem, mm, nm
	}

	theta := math.Mod(d.gsto+t*rptim, twoPi)
	atime := 0.0
	xni := d.nodp
	xli := d.xlamo
	delt := stepp
	if t < 0 {
		delt = -stepp
	}
	var xndt, xldot, xnddt T
	for {
		xndt, xldot, xnddt = d.rates(xli, xni, atime)
		if math.Abs(t-atime) < stepp {
			break
		}
		xli = xli.Add(xldot.MulS(delt)).Add(xndt.MulS(step2))
		xni = xni.Add(xndt.MulS(delt)).Add(xnddt.MulS(step2))
		atime += delt
	}
	ft := t - atime
	nm = xni.Add(xndt.MulS(ft)).Add(xnddt.MulS(ft * ft * 0.5))
	xl := xli.Add(xldot.MulS(ft)).Add(xndt.MulS(ft * ft * 0.5))
	if d.irez != 1 {
		mm = xl.Sub(nodem.MulS(2)).AddS(2 * theta)
	} else {
		mm = xl.Sub(nodem).Sub(argpm).AddS(theta)
	}
	return em, inclm, argpm, nodem, mm, nm
}

// periodics applies the lunar-solar periodic corrections at time t, switching
// to the Lyddane variables below 0.2 rad inclination.
func (d *deepspace[T]) periodics(t float64, ep, xincp, nodep, argpp, mp T) (T, T, T, T, T) {
	zm := ep.Lift(d.zmos + zns*t)
	zf := zm.Add(zm.Sin().MulS(2 * zes))
	sinzf := zf.Sin()
	f2 := sinzf.Mul(sinzf).MulS(0.5).AddS(-0.25)
	f3 := sinzf.Mul(zf.Cos()).MulS(-0.5)
	ses := d.se2.Mul(f2).Add(d.se3.Mul(f3))
	sis := d.si2.Mul(f2).Add(d.si3.Mul(f3))
	sls := d.sl2.Mul(f2).Add(d.sl3.Mul(f3)).Add(d.sl4.Mul(sinzf))
	sghs := d.sgh2.Mul(f2).Add(d.sgh3.Mul(f3)).Add(d.sgh4.Mul(sinzf))
	shs := d.sh2.Mul(f2).Add(d.sh3.Mul(f3))

	zm = ep.Lift(d.zmol + znl*t)
	zf = zm.Add(zm.Sin().MulS(2 * zel))
	sinzf = zf.Sin()
	f2 = sinzf.Mul(sinzf).MulS(0.5).AddS(-0.25)
	f3 = sinzf.Mul(zf.Cos()).MulS(-0.5)
	sel := d.ee2.Mul(f2).Add(d.e3.Mul(f3))
	sil := d.xi2.Mul(f2).Add(d.xi3.Mul(f3))
	sll := d.xl2.Mul(f2).Add(d.xl3.Mul(f3)).Add(d.xl4.Mul(sinzf))
	sghl := d.xgh2.Mul(f2).Add(d.xgh3.Mul(f3)).Add(d.xgh4.Mul(sinzf))
	shll := d.xh2.Mul(f2).Add(d.xh3.Mul(f3))

	pe := ses.Add(sel)
	pinc := sis.Add(sil)
	pl := sls.Add(sll)
	pgh := sghs.Add(sghl)
	ph := shs.Add(shll)

	xincp = xincp.Add(pinc)
	ep = ep.Add(pe)
	sinip, cosip := xincp.SinCos()
	if xincp.Float() >= 0.2 {
		ph = ph.Div(sinip)
		pgh = pgh.Sub(cosip.Mul(ph))
		argpp = argpp.Add(pgh)
		nodep = nodep.Add(ph)
		mp = mp.Add(pl)
		return ep, xincp, nodep, argpp, mp
	}

	// Lyddane modification near the critical inclination
	sinop, cosop := nodep.SinCos()
	alfdp := sinip.Mul(sinop)
	betdp := sinip.Mul(cosop)
	dalf := ph.Mul(cosop).Add(pinc.Mul(cosip).Mul(sinop))
	dbet := ph.Neg().Mul(sinop).Add(pinc.Mul(cosip).Mul(cosop))
	alfdp = alfdp.Add(dalf)
	betdp = betdp.Add(dbet)
	nodep = nodep.Mod(twoPi)
	xls := mp.Add(argpp).Add(cosip.Mul(nodep))
	dls := pl.Add(pgh).Sub(pinc.Mul(nodep).Mul(sinip))
	xls = xls.Add(dls)
	xnoh := nodep.Float()
	nodep = alfdp.Atan2(betdp)
	if math.Abs(xnoh-nodep.Float()) > math.Pi {
		if nodep.Float() < xnoh {
			nodep = nodep.AddS(twoPi)
		} else {
			nodep = nodep.AddS(-twoPi)
		}
	}
	mp = mp.Add(pl)
	argpp = xls.Sub(mp).Sub(cosip.Mul(nodep))
	return ep, xincp, nodep, argpp, mp
}
